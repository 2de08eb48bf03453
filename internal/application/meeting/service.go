package meeting

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/domain"
)

type Clock interface{ Now() time.Time }

type Repo interface {
	List(ctx context.Context) ([]*domain.Meeting, error)
	GetByID(ctx context.Context, id string) (*domain.Meeting, error)
	Create(ctx context.Context, m *domain.Meeting) error
	Update(ctx context.Context, m *domain.Meeting) error
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishMeetingScheduled(ctx context.Context, evt domain.MeetingScheduledEvent) error
}

type Service struct {
	repo  Repo
	pub   EventPublisher
	clock Clock
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func New(repo Repo, pub EventPublisher, clock Clock) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	return &Service{repo: repo, pub: pub, clock: clock}
}

const maxLinkLen = 200

var meetings = domain.Resource{Kind: domain.ResourceMeeting}

type CreateCmd struct {
	Title       string
	Link        string
	Description string
	ScheduledAt string
}

// UpdateCmd fields left nil are unchanged. An empty ScheduledAt unschedules.
type UpdateCmd struct {
	Title       *string
	Link        *string
	Description *string
	ScheduledAt *string
}

func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*domain.Meeting, error) {
	if err := domain.RequireAllowed(actor, meetings, domain.OpList); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, actor domain.Principal, id string) (*domain.Meeting, error) {
	if err := domain.RequireAllowed(actor, meetings, domain.OpRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

// Schedule creates a meeting. Input errors are reported as they are; a
// failure while storing becomes could_not_schedule_meeting.
func (s *Service) Schedule(ctx context.Context, actor domain.Principal, cmd CreateCmd) (*domain.Meeting, error) {
	if err := domain.RequireAllowed(actor, meetings, domain.OpCreate); err != nil {
		return nil, err
	}

	title, err := domain.ValidateTitle(cmd.Title)
	if err != nil {
		return nil, err
	}
	link, err := validateLink(cmd.Link)
	if err != nil {
		return nil, err
	}
	at, err := domain.ParseScheduledAt(cmd.ScheduledAt)
	if err != nil {
		return nil, err
	}

	m := &domain.Meeting{
		ID:          uuid.NewString(),
		Title:       title,
		Link:        link,
		Description: cmd.Description,
		ScheduledAt: at,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, domain.ErrCouldNotScheduleMeeting(err)
	}

	if s.pub != nil {
		evt := domain.MeetingScheduledEvent{MeetingID: m.ID, Title: m.Title, Link: m.Link, ScheduledAt: m.ScheduledAt}
		if err := s.pub.PublishMeetingScheduled(ctx, evt); err != nil {
			zlog.Warn().Err(err).Str("meeting_id", m.ID).Msg("publish meeting.scheduled failed")
		}
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Principal, id string, cmd UpdateCmd) (*domain.Meeting, error) {
	if err := domain.RequireAllowed(actor, meetings, domain.OpUpdate); err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if cmd.Title != nil {
		if m.Title, err = domain.ValidateTitle(*cmd.Title); err != nil {
			return nil, err
		}
	}
	if cmd.Link != nil {
		if m.Link, err = validateLink(*cmd.Link); err != nil {
			return nil, err
		}
	}
	if cmd.Description != nil {
		m.Description = *cmd.Description
	}
	if cmd.ScheduledAt != nil {
		if m.ScheduledAt, err = domain.ParseScheduledAt(*cmd.ScheduledAt); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if err := domain.RequireAllowed(actor, meetings, domain.OpDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

func validateLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrMissingField("link")
	}
	if len(raw) > maxLinkLen {
		return "", domain.ErrInvalidField("link", "must be at most 200 characters")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", domain.ErrInvalidField("link", "must be an http(s) URL")
	}
	return raw, nil
}
