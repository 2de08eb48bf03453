package task

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

// UpdateCmd carries the fields to change; nil means "leave as is".
// ReplaceDeadline makes a nil Deadline clear the stored one (full update).
type UpdateCmd struct {
	Title           *string
	Description     *string
	Status          *string
	AssignedTo      *string
	Deadline        *time.Time
	ReplaceDeadline bool
}

// Update applies cmd. Status may move between any two values. Reassignment is
// only honoured for callers who see all tasks; employees cannot move a task
// off themselves.
func (s *Service) Update(ctx context.Context, actor domain.Principal, id string, cmd UpdateCmd) (*domain.Task, error) {
	t, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireAllowed(actor, taskResource(t), domain.OpUpdate); err != nil {
		return nil, err
	}

	if cmd.Title != nil {
		title, err := domain.ValidateTitle(*cmd.Title)
		if err != nil {
			return nil, err
		}
		t.Title = title
	}
	if cmd.Description != nil {
		t.Description = *cmd.Description
	}
	if cmd.Status != nil {
		status, err := domain.ParseTaskStatus(*cmd.Status)
		if err != nil {
			return nil, err
		}
		t.Status = status
	}
	if cmd.ReplaceDeadline || cmd.Deadline != nil {
		t.Deadline = cmd.Deadline
	}

	if cmd.AssignedTo != nil && actor.SeesAllTasks() {
		assignee := strings.TrimSpace(*cmd.AssignedTo)
		if assignee == "" {
			return nil, domain.ErrMissingField("assigned_to")
		}
		if assignee != t.AssignedTo {
			name, err := s.resolveAssignee(ctx, assignee)
			if err != nil {
				return nil, err
			}
			t.AssignedTo = assignee
			t.AssignedToUsername = name
		}
	}

	t.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
