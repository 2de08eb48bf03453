package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/baechuer/taskflow/internal/domain"
)

// Timeout is the hard wall-clock limit for one program.
const Timeout = 10 * time.Second

const (
	MsgTimedOut     = "Execution timed out after 10 seconds."
	MsgNoOutput     = "Code executed, but produced no output."
	MsgTaskNotFound = "Task not found or not yours."
)

type Request struct {
	Code             string
	Language         string
	TaskID           string // optional
	SuccessCondition string // optional
}

type Result struct {
	Output      string
	Error       string
	TaskUpdated bool
}

// DefaultQueueWait bounds how long a request waits for a free execution slot.
const DefaultQueueWait = 5 * time.Second

type Config struct {
	MaxConcurrent int64
	// QueueWait is how long Execute waits for a slot before reporting
	// execution_busy. Zero means DefaultQueueWait.
	QueueWait time.Duration
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Engine struct {
	runner  Runner
	tasks   TaskCompleter
	pub     EventPublisher
	archive Archiver
	clock   Clock
	slots   *semaphore.Weighted
	wait    time.Duration
	audit   func(action string, fields map[string]string)
}

// NewEngine wires an engine. pub and archive may be nil.
func NewEngine(runner Runner, tasks TaskCompleter, pub EventPublisher, archive Archiver, cfg Config) *Engine {
	n := cfg.MaxConcurrent
	if n <= 0 {
		n = 4
	}
	wait := cfg.QueueWait
	if wait <= 0 {
		wait = DefaultQueueWait
	}
	return &Engine{
		runner:  runner,
		tasks:   tasks,
		pub:     pub,
		archive: archive,
		clock:   systemClock{},
		slots:   semaphore.NewWeighted(n),
		wait:    wait,
		audit:   func(string, map[string]string) {},
	}
}

func (e *Engine) WithClock(c Clock) *Engine {
	if c != nil {
		e.clock = c
	}
	return e
}

func (e *Engine) WithAudit(fn func(action string, fields map[string]string)) *Engine {
	if fn != nil {
		e.audit = fn
	}
	return e
}

// Execute runs req.Code for actor. Once the request is valid, every outcome
// of the program itself (timeouts, crashes, non-zero exits) is reported in
// Result.Error rather than as a returned error.
func (e *Engine) Execute(ctx context.Context, actor domain.Principal, req Request) (Result, error) {
	code := strings.TrimSpace(req.Code)
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if code == "" {
		return Result{}, domain.ErrMissingField("code")
	}
	if lang == "" {
		return Result{}, domain.ErrMissingField("language")
	}
	if lang != "python" {
		return Result{}, domain.ErrUnsupportedLanguage(req.Language)
	}

	if err := e.acquire(ctx); err != nil {
		return Result{}, err
	}
	started := e.clock.Now()
	run, runErr := e.runner.Run(ctx, Program{Language: lang, Code: code, Timeout: Timeout})
	elapsed := e.clock.Now().Sub(started)
	e.slots.Release(1)

	res, outcome := interpret(run, runErr)
	executionsTotal.WithLabelValues(outcome).Inc()
	executionDuration.Observe(elapsed.Seconds())

	taskID := strings.TrimSpace(req.TaskID)
	// a blank condition is treated as absent; a real one is matched verbatim
	hasCondition := strings.TrimSpace(req.SuccessCondition) != ""
	if taskID != "" && hasCondition && res.Error == "" &&
		strings.Contains(res.Output, req.SuccessCondition) {
		// single conditional UPDATE; nothing is held open while the program runs
		ok, err := e.tasks.CompleteOwned(ctx, taskID, actor.UserID, e.clock.Now().UTC())
		if err != nil {
			return Result{}, err
		}
		if ok {
			res.TaskUpdated = true
			e.onCompleted(ctx, taskID, actor.UserID)
		} else {
			res.Error = appendLine(res.Error, MsgTaskNotFound)
		}
	}

	if res.Output == "" && res.Error == "" {
		res.Output = MsgNoOutput
	}

	e.archiveTranscript(ctx, Transcript{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		TaskID:      taskID,
		Language:    lang,
		Code:        code,
		Output:      res.Output,
		Error:       res.Error,
		ExitCode:    run.ExitCode,
		TimedOut:    run.TimedOut,
		TaskUpdated: res.TaskUpdated,
		StartedAt:   started.UTC(),
		Duration:    elapsed,
	})

	return res, nil
}

// acquire waits for a free slot, but never longer than the queue wait, so a
// request whose client has given up does not run later.
func (e *Engine) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, e.wait)
	defer cancel()
	if err := e.slots.Acquire(waitCtx, 1); err != nil {
		return domain.ErrExecutionBusy()
	}
	return nil
}

func interpret(run RunResult, runErr error) (Result, string) {
	switch {
	case runErr != nil:
		return Result{Error: runErr.Error()}, "error"
	case run.TimedOut:
		return Result{Error: MsgTimedOut}, "timeout"
	}

	res := Result{Output: run.Stdout, Error: run.Stderr}
	if run.ExitCode != 0 {
		if strings.TrimSpace(run.Stderr) == "" {
			res.Error = fmt.Sprintf("Process exited with code %d.", run.ExitCode)
		}
		return res, "nonzero_exit"
	}
	return res, "ok"
}

func (e *Engine) onCompleted(ctx context.Context, taskID, userID string) {
	tasksAutoCompleted.Inc()
	e.audit("task_auto_completed", map[string]string{"task_id": taskID, "user_id": userID})

	if e.pub == nil {
		return
	}
	evt := domain.TaskCompletedEvent{TaskID: taskID, UserID: userID, At: e.clock.Now().UTC()}
	if err := e.pub.PublishTaskCompleted(ctx, evt); err != nil {
		zlog.Warn().Err(err).Str("task_id", taskID).Msg("publish task.completed failed")
	}
}

func (e *Engine) archiveTranscript(ctx context.Context, t Transcript) {
	if e.archive == nil {
		return
	}
	if err := e.archive.Archive(ctx, t); err != nil {
		zlog.Warn().Err(err).Str("execution_id", t.ID).Msg("archive transcript failed")
	}
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return strings.TrimRight(s, "\n") + "\n" + line
}
