package dto

import (
	"strings"
	"time"

	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/domain"
)

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type CreateTaskRequest struct {
	Title       string           `json:"title" validate:"notblank,max=200"`
	Description string           `json:"description"`
	Status      string           `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	AssignedTo  string           `json:"assigned_to"`
	Deadline    Optional[string] `json:"deadline"`
}

func (r CreateTaskRequest) Command() (task.CreateCmd, error) {
	deadline, err := parseDeadline(r.Deadline.orZero())
	if err != nil {
		return task.CreateCmd{}, err
	}
	return task.CreateCmd{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		AssignedTo:  r.AssignedTo,
		Deadline:    deadline,
	}, nil
}

// UpdateTaskRequest serves PUT and PATCH. Omitted fields are nil.
type UpdateTaskRequest struct {
	Title       *string          `json:"title" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Status      *string          `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	AssignedTo  *string          `json:"assigned_to"`
	Deadline    Optional[string] `json:"deadline"`
}

// Command builds the update. A full (PUT) update requires a title and resets
// the description and deadline when they are omitted; status and assignee are
// only changed when supplied.
func (r UpdateTaskRequest) Command(full bool) (task.UpdateCmd, error) {
	cmd := task.UpdateCmd{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		AssignedTo:  r.AssignedTo,
	}
	if full {
		if r.Title == nil {
			return task.UpdateCmd{}, domain.ErrMissingField("title")
		}
		if cmd.Description == nil {
			empty := ""
			cmd.Description = &empty
		}
		cmd.ReplaceDeadline = true
	}
	if r.Deadline.Set {
		cmd.ReplaceDeadline = true
	}
	deadline, err := parseDeadline(r.Deadline.orZero())
	if err != nil {
		return task.UpdateCmd{}, err
	}
	cmd.Deadline = deadline
	return cmd, nil
}

func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, domain.ErrInvalidField("deadline", "expected an ISO 8601 date or date-time")
}

type TaskView struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AssignedTo         string     `json:"assigned_to"`
	AssignedToUsername string     `json:"assigned_to_username"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Deadline           *time.Time `json:"deadline"`
}

func ToTaskView(t *domain.Task) TaskView {
	return TaskView{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		AssignedTo:         t.AssignedTo,
		AssignedToUsername: t.AssignedToUsername,
		Status:             string(t.Status),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		Deadline:           t.Deadline,
	}
}

func ToTaskViews(ts []*domain.Task) []TaskView {
	out := make([]TaskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToTaskView(t))
	}
	return out
}
