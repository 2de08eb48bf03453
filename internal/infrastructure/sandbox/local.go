//go:build unix

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/application/execution"
)

// LocalConfig configures LocalRunner.
type LocalConfig struct {
	// Interpreters maps a language to the argv prefix the code is appended to.
	Interpreters map[string][]string
	// UID/GID drop privileges when the server runs as root. 0 keeps the
	// server's identity.
	UID, GID int
	// MemoryBytes caps the address space; 0 means no cap.
	MemoryBytes uint64
	// CPUSeconds caps CPU time; 0 derives it from the program timeout.
	CPUSeconds uint64
	MaxOutput  int
	// WaitDelay bounds how long Wait keeps reading pipes after the kill.
	WaitDelay time.Duration
}

// PythonInterpreters runs code with `python -I -c <code>`: isolated mode, no
// user site-packages, no PYTHON* environment.
func PythonInterpreters(bin string) map[string][]string {
	if bin == "" {
		bin = "python3"
	}
	return map[string][]string{"python": {bin, "-I", "-c"}}
}

// LocalRunner executes code as a child process of the server. It is not a
// security boundary: it bounds time, output and resources, and kills the whole
// process group on timeout, but the code still sees the host filesystem.
// DockerRunner is the isolated alternative.
type LocalRunner struct {
	cfg LocalConfig
}

func NewLocalRunner(cfg LocalConfig) *LocalRunner {
	if cfg.Interpreters == nil {
		cfg.Interpreters = PythonInterpreters("")
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = MaxOutputBytes
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = 500 * time.Millisecond
	}
	return &LocalRunner{cfg: cfg}
}

func (r *LocalRunner) Run(ctx context.Context, p execution.Program) (execution.RunResult, error) {
	argv, ok := r.cfg.Interpreters[strings.ToLower(p.Language)]
	if !ok || len(argv) == 0 {
		return execution.RunResult{}, fmt.Errorf("no interpreter for %q", p.Language)
	}

	workDir, err := os.MkdirTemp("", "taskflow-exec-")
	if err != nil {
		return execution.RunResult{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	args := append(append([]string{}, argv[1:]...), p.Code)
	cmd := exec.CommandContext(runCtx, argv[0], args...)
	cmd.Dir = workDir
	cmd.Env = minimalEnv(workDir)
	cmd.Stdin = nil

	stdout := newCappedBuffer(r.cfg.MaxOutput)
	stderr := newCappedBuffer(r.cfg.MaxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	setParentDeathSignal(cmd.SysProcAttr)
	if r.cfg.UID > 0 && os.Geteuid() == 0 {
		gid := r.cfg.GID
		if gid <= 0 {
			gid = r.cfg.UID
		}
		cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uint32(r.cfg.UID), Gid: uint32(gid)}
	}

	// negative pid: the whole group, so anything the program forked dies too
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = r.cfg.WaitDelay

	if err := cmd.Start(); err != nil {
		return execution.RunResult{}, fmt.Errorf("start interpreter: %w", err)
	}

	if err := applyLimits(cmd.Process.Pid, r.limits(p.Timeout)); err != nil {
		zlog.Warn().Err(err).Int("pid", cmd.Process.Pid).Msg("sandbox: could not apply resource limits")
	}

	waitErr := cmd.Wait()

	// reap anything left in the group even on a clean exit
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)

	if ctx.Err() != nil {
		return execution.RunResult{}, ctx.Err()
	}

	res := execution.RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			// ErrWaitDelay means output may be incomplete but the exit status is known
			if !errors.Is(waitErr, exec.ErrWaitDelay) {
				return execution.RunResult{}, fmt.Errorf("wait interpreter: %w", waitErr)
			}
		} else {
			res.ExitCode = exitCode(exitErr)
		}
	}
	if cmd.ProcessState != nil && res.ExitCode == 0 {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	return res, nil
}

func (r *LocalRunner) limits(timeout time.Duration) resourceLimits {
	cpu := r.cfg.CPUSeconds
	if cpu == 0 {
		cpu = uint64(timeout/time.Second) + 1
	}
	return resourceLimits{
		CPUSeconds:   cpu,
		AddressSpace: r.cfg.MemoryBytes,
		FileSize:     16 << 20,
		OpenFiles:    64,
	}
}

func exitCode(e *exec.ExitError) int {
	if ws, ok := e.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return e.ExitCode()
}

func minimalEnv(home string) []string {
	return []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + home,
		"TMPDIR=" + home,
		"LANG=C.UTF-8",
		"PYTHONIOENCODING=utf-8",
		"PYTHONDONTWRITEBYTECODE=1",
	}
}
