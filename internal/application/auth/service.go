package auth

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

// bcrypt ignores input past 72 bytes
const maxPasswordBytes = 72

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	signer   TokenSigner
	sessions SessionStore

	accessTTL  time.Duration
	refreshTTL time.Duration
	audit      func(action string, fields map[string]string)
}

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	sessions SessionStore,
	cfg Config,
) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &Service{
		users:      users,
		hasher:     hasher,
		signer:     signer,
		sessions:   sessions,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		audit:      func(string, map[string]string) {},
	}
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

type RegisterResult struct {
	User   domain.User
	Tokens AuthTokens
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// issueTokens issues an access token + refresh token for a user.
func (s *Service) issueTokens(ctx context.Context, u domain.User) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(u.ID, u.Username, string(u.Role), s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	refresh, err := s.sessions.CreateRefreshToken(ctx, u.ID, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// normalizeCredentials trims the username and checks both values are usable.
func normalizeCredentials(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return "", domain.WithMeta(
			domain.New(domain.KindValidation, "missing_field", "Username and password required"),
			map[string]string{"field": "username/password"},
		)
	}
	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return "", err
	}
	if len(password) > maxPasswordBytes {
		return "", domain.ErrInvalidField("password", "must be at most 72 bytes")
	}
	return username, nil
}
