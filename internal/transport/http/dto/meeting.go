package dto

import (
	"time"

	"github.com/baechuer/taskflow/internal/application/meeting"
	"github.com/baechuer/taskflow/internal/domain"
)

type CreateMeetingRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Link        string `json:"link" validate:"notblank,max=200"`
	Description string `json:"description"`
	ScheduledAt string `json:"scheduled_at"`
}

func (r CreateMeetingRequest) Command() meeting.CreateCmd {
	return meeting.CreateCmd{
		Title:       r.Title,
		Link:        r.Link,
		Description: r.Description,
		ScheduledAt: r.ScheduledAt,
	}
}

type UpdateMeetingRequest struct {
	Title       *string          `json:"title" validate:"omitempty,max=200"`
	Link        *string          `json:"link" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	ScheduledAt Optional[string] `json:"scheduled_at"`
}

// Command builds the update. PUT requires title and link and clears the
// description and schedule when omitted.
func (r UpdateMeetingRequest) Command(full bool) (meeting.UpdateCmd, error) {
	cmd := meeting.UpdateCmd{
		Title:       r.Title,
		Link:        r.Link,
		Description: r.Description,
	}
	if r.ScheduledAt.Set || full {
		s := r.ScheduledAt.orZero()
		cmd.ScheduledAt = &s
	}
	if full {
		if r.Title == nil {
			return meeting.UpdateCmd{}, domain.ErrMissingField("title")
		}
		if r.Link == nil {
			return meeting.UpdateCmd{}, domain.ErrMissingField("link")
		}
		if cmd.Description == nil {
			empty := ""
			cmd.Description = &empty
		}
	}
	return cmd, nil
}

type MeetingView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToMeetingView(m *domain.Meeting) MeetingView {
	return MeetingView{
		ID:          m.ID,
		Title:       m.Title,
		Link:        m.Link,
		Description: m.Description,
		ScheduledAt: m.ScheduledAt,
		CreatedAt:   m.CreatedAt,
	}
}

func ToMeetingViews(ms []*domain.Meeting) []MeetingView {
	out := make([]MeetingView, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMeetingView(m))
	}
	return out
}
