package auth

import (
	"context"
	"strings"

	"github.com/baechuer/taskflow/internal/domain"
)

// Refresh exchanges a refresh token for a new access token. The role in the
// new token is read from the store, not from the old token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}

	uid, err := s.sessions.GetUserIDByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return "", domain.ErrRefreshTokenInvalid()
		}
		return "", err
	}

	access, err := s.signer.SignAccessToken(u.ID, u.Username, string(u.Role), s.accessTTL)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return access, nil
}
