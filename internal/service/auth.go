package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/auth"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/repository"
)

const minPasswordLength = 8

// AuthService handles registration, login, and token validation for both
// email/password and Google accounts.
//
// It delegates account creation to AccountService so new identities get
// the same subscription and usage provisioning regardless of how they
// arrived.
type AuthService struct {
	users     repository.UserRepository
	accounts  *AccountService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	accounts *AccountService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterEmail creates an email/password account on the given plan and
// issues a token.
//
// A partial-provisioning failure still yields a usable AuthResult: the
// account and password exist and the error is returned alongside so the
// handler can report the degraded state. Any other error yields no result.
func (s *AuthService) RegisterEmail(ctx context.Context, name, email, password string, p model.Plan) (*AuthResult, error) {
	if len(password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	// Hash before touching the store so a bad password never leaves a
	// half-created account behind.
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user, err := s.accounts.CreateAccount(ctx, model.Identity{
		Name:       name,
		Email:      email,
		AuthMethod: "email",
	}, p)
	var provisioningErr error
	if err != nil {
		if !errors.Is(err, apperror.ErrPartialProvisioning) {
			return nil, err
		}
		provisioningErr = err
	}

	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Token: token}, provisioningErr
}

// LoginEmail authenticates an email/password user and issues a token.
// All credential failures return the same forbidden error so a caller
// cannot probe which emails are registered.
func (s *AuthService) LoginEmail(ctx context.Context, email, password string) (*AuthResult, error) {
	badCredentials := apperror.Forbidden("invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, badCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		// Google-only account: no password to check against.
		return nil, badCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, badCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "method", "email")
	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGoogle handles the Google OAuth callback. First login
// creates an account on the trial plan; later logins refresh the name and
// avatar in case they changed on the Google side.
//
// Partial provisioning on first login is logged but does not block the
// session — the user record exists, which is all a login needs.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user, err := s.users.GetByEmail(ctx, gUser.Email)
	switch {
	case err == nil:
		if user.Name != gUser.Name || user.Profile.Avatar != gUser.Picture {
			user.Name = gUser.Name
			user.Profile.Avatar = gUser.Picture
			if err := s.users.Update(ctx, user); err != nil {
				return nil, err
			}
		}
	case isNotFound(err):
		user, err = s.accounts.CreateAccount(ctx, model.Identity{
			Name:           gUser.Name,
			Email:          gUser.Email,
			Picture:        gUser.Picture,
			ProviderUserID: gUser.Sub,
			AuthMethod:     "google",
		}, model.PlanTrial)
		if err != nil {
			if !errors.Is(err, apperror.ErrPartialProvisioning) {
				return nil, err
			}
			s.logger.Warn("Google signup provisioned partially", "user_id", user.ID, "error", err)
		}
	default:
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "method", "google")
	return &AuthResult{User: user, Token: token}, nil
}

// ValidateToken verifies a JWT and returns the userID it carries.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}

// GetUserByID returns the user record for an authenticated userID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}
