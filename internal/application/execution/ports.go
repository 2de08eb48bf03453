package execution

import (
	"context"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

// Program is one piece of user code to run.
type Program struct {
	Language string
	Code     string
	Timeout  time.Duration
}

// RunResult is what a Runner observed. TimedOut means the program was killed
// at the deadline and Stdout/Stderr are incomplete.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Runner executes a Program in isolation. Implementations must not involve a
// shell and must kill everything the program spawned when the timeout fires.
type Runner interface {
	Run(ctx context.Context, p Program) (RunResult, error)
}

// TaskCompleter marks a task DONE only if it is assigned to userID. It
// reports false when no such task exists.
type TaskCompleter interface {
	CompleteOwned(ctx context.Context, taskID, userID string, at time.Time) (bool, error)
}

type EventPublisher interface {
	PublishTaskCompleted(ctx context.Context, evt domain.TaskCompletedEvent) error
}

// Transcript is the archived record of one execution.
type Transcript struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	TaskID      string        `json:"task_id,omitempty"`
	Language    string        `json:"language"`
	Code        string        `json:"code"`
	Output      string        `json:"output"`
	Error       string        `json:"error"`
	ExitCode    int           `json:"exit_code"`
	TimedOut    bool          `json:"timed_out"`
	TaskUpdated bool          `json:"task_updated"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

type Archiver interface {
	Archive(ctx context.Context, t Transcript) error
}

type Clock interface{ Now() time.Time }
