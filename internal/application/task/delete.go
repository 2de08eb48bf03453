package task

import (
	"context"

	"github.com/baechuer/taskflow/internal/domain"
)

func (s *Service) Delete(ctx context.Context, actor domain.Principal, id string) error {
	t, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := domain.RequireAllowed(actor, taskResource(t), domain.OpDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, t.ID)
}
