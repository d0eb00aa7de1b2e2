package views

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/console/internal/model"
	"github.com/Astemirdum/equipment-lending/pkg/auth"
)

type userLookup interface {
	GetUser(ctx context.Context, id int64) (model.User, error)
}

// UserNames resolves borrower names for the queues. Names are read-only
// display data, so a short-lived cache is enough.
type UserNames struct {
	api   userLookup
	self  auth.Profile
	cache *cache.Cache
	log   *zap.Logger
}

func NewUserNames(lookup userLookup, self auth.Profile, ttl time.Duration, log *zap.Logger) *UserNames {
	return &UserNames{
		api:   lookup,
		self:  self,
		cache: cache.New(ttl, 2*ttl),
		log:   log.Named("users"),
	}
}

func (u *UserNames) Name(ctx context.Context, id int64) string {
	if id == u.self.UserID && u.self.Name != "" {
		return u.self.Name
	}
	key := strconv.FormatInt(id, 10)
	if name, ok := u.cache.Get(key); ok {
		return name.(string)
	}
	user, err := u.api.GetUser(ctx, id)
	if err != nil {
		u.log.Debug("user lookup", zap.Int64("id", id), zap.Error(err))
		return fmt.Sprintf("#%d", id)
	}
	u.cache.Set(key, user.Name, cache.DefaultExpiration)
	return user.Name
}

// Prime fills the cache from a full user listing.
func (u *UserNames) Prime(users []model.User) {
	for _, user := range users {
		u.cache.Set(strconv.FormatInt(user.ID, 10), user.Name, cache.DefaultExpiration)
	}
}

func renderUsers(out io.Writer, users []model.User) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
	}
	_ = tw.Flush()
}
