// Package session reads the signed-in user from the stored token. The token is
// decoded without verification; the portal API checks it on every call.
package session

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

type Session struct {
	Token   string
	Profile auth.Profile
}

func (s Session) Role() lifecycle.Role {
	return s.Profile.Role
}

// FromToken returns false for a missing, undecodable, expired or role-less token.
func FromToken(token string, now time.Time) (Session, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, false
	}
	claims, err := auth.DecodeUnverified(token)
	if err != nil || !claims.Role.Valid() {
		return Session{}, false
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return Session{}, false
	}
	return Session{Token: token, Profile: claims.Profile}, true
}

// Store keeps the token in a file readable only by the owner.
type Store struct {
	path string
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

func (s *Store) Load() (Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Session{}, false
	}
	return FromToken(string(data), s.now())
}

func (s *Store) Save(token string) error {
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "save token")
	}
	return nil
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove token")
	}
	return nil
}
