package auth

import (
	"context"
	"strings"

	"github.com/baechuer/taskflow/internal/domain"
)

// Authenticate verifies an access token and resolves the caller from the
// store, so a role change or deletion takes effect on the next request.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return domain.Principal{}, domain.ErrTokenMissing()
	}

	claims, err := s.signer.VerifyAccessToken(accessToken)
	if err != nil {
		return domain.Principal{}, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.Principal{}, domain.ErrTokenInvalid()
		}
		return domain.Principal{}, err
	}

	return domain.PrincipalOf(&u), nil
}
