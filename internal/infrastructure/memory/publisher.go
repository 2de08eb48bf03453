package memory

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/domain"
)

// NoopPublisher stands in for the broker when RABBIT_URL is unset.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishTaskCreated(ctx context.Context, evt domain.TaskCreatedEvent) error {
	zlog.Debug().Str("task_id", evt.TaskID).Str("assigned_to", evt.AssignedTo).Msg("noop-pub: task.created")
	return nil
}

func (p *NoopPublisher) PublishTaskCompleted(ctx context.Context, evt domain.TaskCompletedEvent) error {
	zlog.Debug().Str("task_id", evt.TaskID).Str("user_id", evt.UserID).Msg("noop-pub: task.completed")
	return nil
}

func (p *NoopPublisher) PublishMeetingScheduled(ctx context.Context, evt domain.MeetingScheduledEvent) error {
	zlog.Debug().Str("meeting_id", evt.MeetingID).Msg("noop-pub: meeting.scheduled")
	return nil
}

func (p *NoopPublisher) PublishTelemetry(ctx context.Context, payload []byte) error {
	zlog.Debug().Int("bytes", len(payload)).Msg("noop-pub: telemetry.batch")
	return nil
}
