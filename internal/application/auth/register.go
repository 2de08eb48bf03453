package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/taskflow/internal/domain"
)

func (s *Service) RegisterEmployee(ctx context.Context, username, password string) (RegisterResult, error) {
	return s.register(ctx, username, password, domain.RoleEmployee)
}

// RegisterScrumMaster fails with scrum_master_exists once one is stored.
func (s *Service) RegisterScrumMaster(ctx context.Context, username, password string) (RegisterResult, error) {
	return s.register(ctx, username, password, domain.RoleScrumMaster)
}

func (s *Service) register(ctx context.Context, username, password string, role domain.Role) (RegisterResult, error) {
	created, err := s.createUser(ctx, username, password, role, false)
	if err != nil {
		return RegisterResult{}, err
	}

	toks, err := s.issueTokens(ctx, created)
	if err != nil {
		return RegisterResult{}, err
	}

	s.audit("register", map[string]string{"user_id": created.ID, "role": string(created.Role)})
	return RegisterResult{User: created, Tokens: toks}, nil
}

// CreateSuperuser is the administrator path; no tokens are issued.
func (s *Service) CreateSuperuser(ctx context.Context, username, password string, role domain.Role) (domain.User, error) {
	u, err := s.createUser(ctx, username, password, role, true)
	if err != nil {
		return domain.User{}, err
	}
	s.audit("superuser_created", map[string]string{"user_id": u.ID, "role": string(u.Role)})
	return u, nil
}

func (s *Service) createUser(ctx context.Context, username, password string, role domain.Role, superuser bool) (domain.User, error) {
	username, err := normalizeCredentials(username, password)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, domain.ErrHashFailed(err)
	}

	// Uniqueness of the username and of the Scrum Master is the store's job.
	return s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsSuperuser:  superuser,
	})
}
