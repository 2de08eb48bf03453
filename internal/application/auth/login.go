package auth

import (
	"context"
	"strings"

	"github.com/baechuer/taskflow/internal/domain"
)

// Login authenticates a user and issues tokens.
// IMPORTANT: must not leak whether the username exists.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return LoginResult{}, domain.ErrInvalidCredentials()
		}
		return LoginResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	toks, err := s.issueTokens(ctx, u)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit("login", map[string]string{"user_id": u.ID})
	return LoginResult{User: u, Tokens: toks}, nil
}
