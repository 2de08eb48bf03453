package task

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Service struct {
	repo  TaskRepo
	users UserLookup
	pub   EventPublisher
	clock Clock
}

func New(repo TaskRepo, users UserLookup, pub EventPublisher, clock Clock) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{repo: repo, users: users, pub: pub, clock: clock}
}

// visible loads a task the actor is allowed to know about. Tasks outside an
// employee's scope are reported as missing.
func (s *Service) visible(ctx context.Context, actor domain.Principal, id string) (*domain.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrTaskNotFound()
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.SeesAllTasks() && t.AssignedTo != actor.UserID {
		return nil, domain.ErrTaskNotFound()
	}
	return t, nil
}

// resolveAssignee checks the user exists and returns its username.
func (s *Service) resolveAssignee(ctx context.Context, id string) (string, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return "", domain.ErrUnknownAssignee(id)
		}
		return "", err
	}
	return u.Username, nil
}

func taskResource(t *domain.Task) domain.Resource {
	if t == nil {
		return domain.Resource{Kind: domain.ResourceTask}
	}
	return domain.Resource{Kind: domain.ResourceTask, OwnerID: t.AssignedTo}
}
