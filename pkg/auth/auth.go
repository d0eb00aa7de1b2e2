package auth

import (
	"context"
	"time"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type Config struct {
	Secret   string        `yaml:"secret" envconfig:"JWT_SECRET" required:"true"`
	TokenTTL time.Duration `yaml:"tokenTTL" envconfig:"JWT_TTL" default:"24h"`
}

type Profile struct {
	UserID int64          `json:"id"`
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Role   lifecycle.Role `json:"role"`
}

type Claims struct {
	Profile
	jwt.RegisteredClaims
}

var (
	ErrNoProfile    = errors.New("no profile in context")
	ErrInvalidToken = errors.New("invalid token")
)

// NewToken signs an HS256 token carrying the profile.
func NewToken(cfg Config, p Profile, now time.Time) (string, time.Time, error) {
	exp := now.Add(cfg.TokenTTL)
	claims := &Claims{
		Profile: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseToken verifies signature and expiry.
func ParseToken(cfg Config, token string) (*Claims, error) {
	claims := new(Claims)
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, errors.Wrap(ErrInvalidToken, "unknown role")
	}
	return claims, nil
}

// DecodeUnverified reads the claims without checking the signature. Only for
// display purposes; the API stays authoritative.
func DecodeUnverified(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	return claims, nil
}

type ctxKey struct{}

func SetAuthContext(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func GetProfile(ctx context.Context) (Profile, error) {
	p, ok := ctx.Value(ctxKey{}).(Profile)
	if !ok {
		return Profile{}, ErrNoProfile
	}
	return p, nil
}

func HasRole(ctx context.Context, roles ...lifecycle.Role) bool {
	p, err := GetProfile(ctx)
	if err != nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func IsAdmin(ctx context.Context) bool {
	return HasRole(ctx, lifecycle.RoleAdmin)
}
