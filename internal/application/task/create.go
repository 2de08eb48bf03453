package task

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/domain"
)

type CreateCmd struct {
	Title       string
	Description string
	Status      string
	AssignedTo  string // ignored for employees
	Deadline    *time.Time
}

func (s *Service) Create(ctx context.Context, actor domain.Principal, cmd CreateCmd) (*domain.Task, error) {
	title, err := domain.ValidateTitle(cmd.Title)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseTaskStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	assignee := strings.TrimSpace(cmd.AssignedTo)
	assigneeName := actor.Username
	if !actor.SeesAllTasks() {
		// employees always create tasks for themselves
		assignee = actor.UserID
	} else {
		if assignee == "" {
			return nil, domain.ErrMissingField("assigned_to")
		}
		if assigneeName, err = s.resolveAssignee(ctx, assignee); err != nil {
			return nil, err
		}
	}

	if err := domain.RequireAllowed(actor, domain.Resource{Kind: domain.ResourceTask, OwnerID: assignee}, domain.OpCreate); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	t := &domain.Task{
		ID:                 uuid.NewString(),
		Title:              title,
		Description:        cmd.Description,
		AssignedTo:         assignee,
		AssignedToUsername: assigneeName,
		Status:             status,
		Deadline:           cmd.Deadline,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	if s.pub != nil {
		evt := domain.TaskCreatedEvent{
			TaskID:     t.ID,
			Title:      t.Title,
			AssignedTo: t.AssignedTo,
			CreatedBy:  actor.UserID,
			At:         now,
		}
		if err := s.pub.PublishTaskCreated(ctx, evt); err != nil {
			zlog.Warn().Err(err).Str("task_id", t.ID).Msg("publish task.created failed")
		}
	}

	return t, nil
}
