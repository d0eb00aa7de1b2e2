package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	"github.com/Astemirdum/equipment-lending/portal/internal/errs"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
)

func (s *Service) SignUp(ctx context.Context, req model.SignUpRequest) (model.TokenResponse, error) {
	if req.Role == "" {
		req.Role = lifecycle.RoleStudent
	}
	if !req.Role.Valid() {
		return model.TokenResponse{}, errors.Errorf("unknown role %q", req.Role)
	}
	if err := s.checkPrivilegedSignUp(ctx, req.Role); err != nil {
		return model.TokenResponse{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.TokenResponse{}, errors.Wrap(err, "bcrypt")
	}
	u, err := s.repo.CreateUser(ctx, model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Role:         req.Role,
		PasswordHash: string(hash),
	})
	if err != nil {
		return model.TokenResponse{}, err
	}
	return s.issueToken(u)
}

// STAFF and ADMIN accounts are created by an admin. Until the first admin
// exists anyone may register one.
func (s *Service) checkPrivilegedSignUp(ctx context.Context, role lifecycle.Role) error {
	if role == lifecycle.RoleStudent || auth.IsAdmin(ctx) {
		return nil
	}
	admins, err := s.repo.CountUsers(ctx, lifecycle.RoleAdmin)
	if err != nil {
		return err
	}
	if admins > 0 {
		return errors.Wrapf(errs.ErrForbidden, "only an admin can create %s accounts", role)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.TokenResponse{}, errs.ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return model.TokenResponse{}, errs.ErrInvalidCredentials
	}
	return s.issueToken(u)
}

func (s *Service) issueToken(u model.User) (model.TokenResponse, error) {
	token, exp, err := auth.NewToken(s.authCfg, auth.Profile{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
	}, s.now())
	if err != nil {
		return model.TokenResponse{}, errors.Wrap(err, "auth.NewToken")
	}
	return model.TokenResponse{Token: token, ExpiresAt: exp, User: u}, nil
}

// GetUser lets students read only their own record.
func (s *Service) GetUser(ctx context.Context, actor auth.Profile, id int64) (model.User, error) {
	if actor.Role == lifecycle.RoleStudent && actor.UserID != id {
		return model.User{}, errs.ErrForbidden
	}
	return s.repo.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}
