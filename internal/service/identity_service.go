package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 6
)

// IdentityService registers, authenticates and resolves identities.
type IdentityService struct {
	identities repository.IdentityStore
	auth       *AuthService
	captcha    *CaptchaService
	log        zerolog.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(identities repository.IdentityStore, auth *AuthService, captcha *CaptchaService, log zerolog.Logger) *IdentityService {
	return &IdentityService{
		identities: identities,
		auth:       auth,
		captcha:    captcha,
		log:        log.With().Str("component", "identity_service").Logger(),
	}
}

// Register creates a guest identity. The captcha is checked, and consumed, first.
func (s *IdentityService) Register(ctx context.Context, req model.RegisterRequest) (*model.Identity, error) {
	if err := s.captcha.Verify(ctx, req.CaptchaToken, req.CaptchaCode); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, invalid("confirm_password", "must match password")
	}
	identity, err := s.create(ctx, req.Username, req.Password, model.RoleGuest)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("identity_id", identity.ID).Str("username", identity.Username).Msg("Guest registered")
	return identity, nil
}

// Bootstrap creates an identity with any role. Used by the admin and seed commands.
func (s *IdentityService) Bootstrap(ctx context.Context, username, password string, role model.Role) (*model.Identity, error) {
	if !role.Valid() {
		return nil, invalid("role", "unknown role")
	}
	return s.create(ctx, username, password, role)
}

func (s *IdentityService) create(ctx context.Context, username, password string, role model.Role) (*model.Identity, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, invalid("username", fmt.Sprintf("must be %d to %d characters", minUsernameLen, maxUsernameLen))
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	_, err := s.identities.GetIdentityByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %q", ErrDuplicateUsername, username)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeFailure("get identity", err)
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	identity := &model.Identity{Username: username, PasswordHash: hash, Role: role}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateUsername, username)
		}
		return nil, storeFailure("create identity", err)
	}
	return identity, nil
}

// Login verifies credentials and opens a session.
func (s *IdentityService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	identity, err := s.identities.GetIdentityByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeFailure("get identity", err)
	}
	if err := s.auth.CheckPassword(identity.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.auth.IssueToken(ctx, identity.ID)
	if err != nil {
		return nil, storeFailure("issue token", err)
	}
	s.log.Info().Int("identity_id", identity.ID).Msg("Login succeeded")
	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt, Identity: *identity}, nil
}

// Logout ends the session behind claims.
func (s *IdentityService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if err := s.auth.RevokeSession(ctx, claims.ID); err != nil {
		return storeFailure("revoke session", err)
	}
	return nil
}

// Resolve turns a bearer token into the stored identity. Any invalid, expired
// or revoked token yields ErrUnauthenticated.
func (s *IdentityService) Resolve(ctx context.Context, token string) (*model.Identity, *Claims, error) {
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if err := s.auth.ValidateSession(ctx, claims); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	identity, err := s.identities.GetIdentityByID(ctx, claims.IdentityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: identity %d no longer exists", ErrUnauthenticated, claims.IdentityID)
	}
	if err != nil {
		return nil, nil, storeFailure("get identity", err)
	}
	return identity, claims, nil
}
