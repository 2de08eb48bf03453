package task

import (
	"context"

	"github.com/baechuer/taskflow/internal/domain"
)

// List returns every task for a Scrum Master and only the caller's own tasks
// for an employee.
func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*domain.Task, error) {
	if err := domain.RequireAllowed(actor, taskResource(nil), domain.OpList); err != nil {
		return nil, err
	}

	f := ListFilter{}
	if !actor.SeesAllTasks() {
		f.AssignedTo = actor.UserID
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, actor domain.Principal, id string) (*domain.Task, error) {
	t, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireAllowed(actor, taskResource(t), domain.OpRead); err != nil {
		return nil, err
	}
	return t, nil
}
