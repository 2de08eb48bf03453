package execution

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/taskflow/internal/domain"
)

type fakeRunner struct {
	result RunResult
	err    error
	calls  []Program
	block  chan struct{}
	active int32
	peak   int32
	mu     sync.Mutex
}

func (f *fakeRunner) Run(ctx context.Context, p Program) (RunResult, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		old := atomic.LoadInt32(&f.peak)
		if n <= old || atomic.CompareAndSwapInt32(&f.peak, old, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

type fakeTasks struct {
	owned     map[string]string // taskID -> owner
	completed []string
	err       error
}

func (f *fakeTasks) CompleteOwned(ctx context.Context, taskID, userID string, at time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.owned[taskID] != userID {
		return false, nil
	}
	f.completed = append(f.completed, taskID)
	return true, nil
}

type fakePublisher struct{ events []domain.TaskCompletedEvent }

func (p *fakePublisher) PublishTaskCompleted(ctx context.Context, evt domain.TaskCompletedEvent) error {
	p.events = append(p.events, evt)
	return nil
}

type fakeArchive struct {
	got []Transcript
	err error
}

func (a *fakeArchive) Archive(ctx context.Context, t Transcript) error {
	a.got = append(a.got, t)
	return a.err
}

var emp = domain.Principal{UserID: "e1", Username: "alice", Role: domain.RoleEmployee}

func newEngine(run *fakeRunner, tasks *fakeTasks) (*Engine, *fakePublisher, *fakeArchive) {
	pub := &fakePublisher{}
	arch := &fakeArchive{}
	return NewEngine(run, tasks, pub, arch, Config{MaxConcurrent: 2}), pub, arch
}

func TestExecute_Validation(t *testing.T) {
	run := &fakeRunner{}
	eng, _, _ := newEngine(run, &fakeTasks{})

	_, err := eng.Execute(context.Background(), emp, Request{Code: "  ", Language: "python"})
	assert.True(t, domain.Is(err, "missing_field"))

	_, err = eng.Execute(context.Background(), emp, Request{Code: "print(1)"})
	assert.True(t, domain.Is(err, "missing_field"))

	_, err = eng.Execute(context.Background(), emp, Request{Code: "console.log(1)", Language: "javascript"})
	assert.True(t, domain.Is(err, "unsupported_language"))
	assert.Empty(t, run.calls)
}

func TestExecute_LanguageCaseInsensitive(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "1\n"}}
	eng, _, _ := newEngine(run, &fakeTasks{})

	res, err := eng.Execute(context.Background(), emp, Request{Code: "print(1)", Language: " PyThOn "})
	require.NoError(t, err)
	assert.Equal(t, "1\n", res.Output)
	assert.Empty(t, res.Error)
	require.Len(t, run.calls, 1)
	assert.Equal(t, "python", run.calls[0].Language)
	assert.Equal(t, Timeout, run.calls[0].Timeout)
}

func TestExecute_SuccessConditionCompletesOwnTask(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "all tests PASSED\n"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, pub, arch := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{
		Code: "print('all tests PASSED')", Language: "python", TaskID: "t1", SuccessCondition: "PASSED",
	})
	require.NoError(t, err)
	assert.True(t, res.TaskUpdated)
	assert.Empty(t, res.Error)
	assert.Equal(t, []string{"t1"}, tasks.completed)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "t1", pub.events[0].TaskID)
	require.Len(t, arch.got, 1)
	assert.True(t, arch.got[0].TaskUpdated)
}

func TestExecute_ForeignTaskAppendsNote(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "ok"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "someone-else"}}
	eng, pub, _ := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{
		Code: "print('ok')", Language: "python", TaskID: "t1", SuccessCondition: "ok",
	})
	require.NoError(t, err)
	assert.False(t, res.TaskUpdated)
	assert.Equal(t, "ok", res.Output)
	assert.Equal(t, MsgTaskNotFound, res.Error)
	assert.Empty(t, tasks.completed)
	assert.Empty(t, pub.events)
}

func TestExecute_ConditionNotMet(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "nope"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, _, _ := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{
		Code: "print('nope')", Language: "python", TaskID: "t1", SuccessCondition: "PASSED",
	})
	require.NoError(t, err)
	assert.False(t, res.TaskUpdated)
	assert.Empty(t, res.Error)
	assert.Empty(t, tasks.completed)
}

func TestExecute_ConditionOnlyOrTaskOnlyDoesNothing(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "PASSED"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, _, _ := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{Code: "x", Language: "python", SuccessCondition: "PASSED"})
	require.NoError(t, err)
	assert.False(t, res.TaskUpdated)

	res, err = eng.Execute(context.Background(), emp, Request{Code: "x", Language: "python", TaskID: "t1"})
	require.NoError(t, err)
	assert.False(t, res.TaskUpdated)
	assert.Empty(t, tasks.completed)
}

func TestExecute_BlankConditionIsIgnored(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "hello world\n"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, pub, _ := newEngine(run, tasks)

	for _, cond := range []string{" ", "\t", "\n"} {
		res, err := eng.Execute(context.Background(), emp, Request{
			Code: "print('hello world')", Language: "python", TaskID: "t1", SuccessCondition: cond,
		})
		require.NoError(t, err)
		assert.False(t, res.TaskUpdated, "%q", cond)
		assert.Empty(t, res.Error)
	}
	assert.Empty(t, tasks.completed)
	assert.Empty(t, pub.events)
}

func TestExecute_ConditionMatchedVerbatim(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "result: ok\n"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, _, _ := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{
		Code: "x", Language: "python", TaskID: "t1", SuccessCondition: " ok",
	})
	require.NoError(t, err)
	assert.True(t, res.TaskUpdated)

	run.result = RunResult{Stdout: "result:ok\n"}
	tasks.completed = nil
	res, err = eng.Execute(context.Background(), emp, Request{
		Code: "x", Language: "python", TaskID: "t1", SuccessCondition: " ok",
	})
	require.NoError(t, err)
	assert.False(t, res.TaskUpdated)
	assert.Empty(t, tasks.completed)
}

func TestExecute_StderrBlocksCompletion(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "PASSED", Stderr: "Traceback (most recent call last):\n"}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, _, _ := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{
		Code: "x", Language: "python", TaskID: "t1", SuccessCondition: "PASSED",
	})
	require.NoError(t, err)
	assert.False(t, res.TaskUpdated)
	assert.Contains(t, res.Error, "Traceback")
	assert.Empty(t, tasks.completed)
}

func TestExecute_Timeout(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "partial PASSED", TimedOut: true, ExitCode: -1}}
	tasks := &fakeTasks{owned: map[string]string{"t1": "e1"}}
	eng, _, _ := newEngine(run, tasks)

	res, err := eng.Execute(context.Background(), emp, Request{
		Code: "while True: pass", Language: "python", TaskID: "t1", SuccessCondition: "PASSED",
	})
	require.NoError(t, err)
	assert.Equal(t, MsgTimedOut, res.Error)
	assert.Empty(t, res.Output)
	assert.False(t, res.TaskUpdated)
	assert.Empty(t, tasks.completed)
}

func TestExecute_NonZeroExitWithoutStderr(t *testing.T) {
	run := &fakeRunner{result: RunResult{ExitCode: 3}}
	eng, _, _ := newEngine(run, &fakeTasks{})

	res, err := eng.Execute(context.Background(), emp, Request{Code: "import sys; sys.exit(3)", Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, "Process exited with code 3.", res.Error)
	assert.Empty(t, res.Output)
}

func TestExecute_NoOutputPlaceholder(t *testing.T) {
	run := &fakeRunner{result: RunResult{}}
	eng, _, _ := newEngine(run, &fakeTasks{})

	res, err := eng.Execute(context.Background(), emp, Request{Code: "x = 1", Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, MsgNoOutput, res.Output)
	assert.Empty(t, res.Error)
}

func TestExecute_RunnerErrorIsReportedNotReturned(t *testing.T) {
	run := &fakeRunner{err: errors.New("exec: \"python3\": executable file not found in $PATH")}
	eng, _, _ := newEngine(run, &fakeTasks{})

	res, err := eng.Execute(context.Background(), emp, Request{Code: "print(1)", Language: "python"})
	require.NoError(t, err)
	assert.Contains(t, res.Error, "executable file not found")
}

func TestExecute_CompleterFailureIsReturned(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "PASSED"}}
	tasks := &fakeTasks{err: domain.ErrDBUnavailable(errors.New("down"))}
	eng, _, _ := newEngine(run, tasks)

	_, err := eng.Execute(context.Background(), emp, Request{
		Code: "x", Language: "python", TaskID: "t1", SuccessCondition: "PASSED",
	})
	assert.True(t, domain.Is(err, "db_unavailable"))
}

func TestExecute_ArchiveFailureIgnored(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "hi"}}
	eng, _, arch := newEngine(run, &fakeTasks{})
	arch.err = errors.New("bucket gone")

	res, err := eng.Execute(context.Background(), emp, Request{Code: "print('hi')", Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Output)
	require.Len(t, arch.got, 1)
	assert.Equal(t, "e1", arch.got[0].UserID)
}

func TestExecute_ConcurrencyBounded(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "x"}, block: make(chan struct{})}
	eng := NewEngine(run, &fakeTasks{}, nil, nil, Config{MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = eng.Execute(context.Background(), emp, Request{Code: "x", Language: "python"})
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&run.active) == 2 }, time.Second, 5*time.Millisecond)
	close(run.block)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&run.peak))
}

func TestExecute_BusyWhenContextEndsWhileQueued(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "x"}, block: make(chan struct{})}
	eng := NewEngine(run, &fakeTasks{}, nil, nil, Config{MaxConcurrent: 1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = eng.Execute(context.Background(), emp, Request{Code: "x", Language: "python"})
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&run.active) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := eng.Execute(ctx, emp, Request{Code: "x", Language: "python"})
	assert.True(t, domain.Is(err, "execution_busy"))

	close(run.block)
	<-done
}

func TestExecute_QueueWaitIsBounded(t *testing.T) {
	run := &fakeRunner{result: RunResult{Stdout: "x"}, block: make(chan struct{})}
	eng := NewEngine(run, &fakeTasks{}, nil, nil, Config{MaxConcurrent: 1, QueueWait: 30 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = eng.Execute(context.Background(), emp, Request{Code: "x", Language: "python"})
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&run.active) == 1 }, time.Second, 5*time.Millisecond)

	// the caller's context never ends; the queue wait alone gives up
	start := time.Now()
	_, err := eng.Execute(context.Background(), emp, Request{Code: "x", Language: "python"})
	assert.True(t, domain.Is(err, "execution_busy"))
	assert.Less(t, time.Since(start), time.Second)

	run.mu.Lock()
	calls := len(run.calls)
	run.mu.Unlock()
	assert.Equal(t, 1, calls, "queued program must not run after giving up")

	close(run.block)
	<-done
}

func TestNewEngine_DefaultQueueWait(t *testing.T) {
	eng := NewEngine(&fakeRunner{}, &fakeTasks{}, nil, nil, Config{})
	assert.Equal(t, DefaultQueueWait, eng.wait)
}
