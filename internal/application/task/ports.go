package task

import (
	"context"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// ListFilter narrows a listing. An empty AssignedTo lists every task.
type ListFilter struct {
	AssignedTo string
}

// TaskRepo returns tasks newest first (created_at DESC, id DESC) and fills
// AssignedToUsername on reads.
type TaskRepo interface {
	List(ctx context.Context, f ListFilter) ([]*domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id string) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}

type EventPublisher interface {
	PublishTaskCreated(ctx context.Context, evt domain.TaskCreatedEvent) error
}
