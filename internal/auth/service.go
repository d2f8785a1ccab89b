package auth

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/member-management/internal"
)

// Service issues and validates credentials.
type Service struct {
	store  CredentialStore
	tokens *JWTTokenGenerator
	logger *slog.Logger
}

func NewService(store CredentialStore, tokens *JWTTokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, req LoginRequest) (AuthTokens, error) {
	creds, err := s.store.GetCredentials(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to load credentials", err)
	}
	if creds == nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if !creds.IsActive {
		return AuthTokens{}, internal.ErrUserInactive
	}

	s.logger.Info("user authenticated", "user_id", creds.UserID)
	return s.issue(creds)
}

// RefreshTokens validates a refresh token and rotates both tokens.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.active(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issue(creds)
}

// Authorize turns a bearer access token into the request principal.
func (s *Service) Authorize(ctx context.Context, accessToken string) (*internal.Principal, error) {
	claims, err := s.tokens.ValidateToken(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	creds, err := s.active(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &internal.Principal{ID: creds.UserID, Email: creds.Email}, nil
}

func (s *Service) active(ctx context.Context, userID int64) (*Credentials, error) {
	creds, err := s.store.GetCredentialsByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load credentials", err)
	}
	if creds == nil {
		return nil, internal.ErrInvalidToken
	}
	if !creds.IsActive {
		return nil, internal.ErrUserInactive
	}
	return creds, nil
}

func (s *Service) issue(creds *Credentials) (AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(creds.UserID, creds.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(creds.UserID, creds.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign refresh token", err)
	}
	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTokenTTL.Seconds()),
	}, nil
}
