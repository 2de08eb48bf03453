package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/application/execution"
)

// dockerAPI is the subset of *client.Client the runner uses.
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerKill(ctx context.Context, containerID, signal string) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

type DockerConfig struct {
	Image     string
	MemoryMB  int
	NanoCPUs  int64
	PidsLimit int64
	User      string
	MaxOutput int
}

// DockerRunner runs each program in a throwaway container with no network,
// a read-only root filesystem and no capabilities.
type DockerRunner struct {
	api    dockerAPI
	closer io.Closer
	cfg    DockerConfig
}

func NewDockerRunner(cfg DockerConfig) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	r := newDockerRunner(cli, cfg)
	r.closer = cli
	return r, nil
}

func newDockerRunner(api dockerAPI, cfg DockerConfig) *DockerRunner {
	if cfg.Image == "" {
		cfg.Image = "python:3.12-alpine"
	}
	if cfg.MemoryMB <= 0 {
		cfg.MemoryMB = 256
	}
	if cfg.NanoCPUs <= 0 {
		cfg.NanoCPUs = 1_000_000_000
	}
	if cfg.PidsLimit <= 0 {
		cfg.PidsLimit = 64
	}
	if cfg.User == "" {
		cfg.User = "65534:65534"
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = MaxOutputBytes
	}
	return &DockerRunner{api: api, cfg: cfg}
}

func (r *DockerRunner) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *DockerRunner) containerSpec(code string) (*container.Config, *container.HostConfig) {
	mem := int64(r.cfg.MemoryMB) << 20
	pids := r.cfg.PidsLimit

	cfg := &container.Config{
		Image:           r.cfg.Image,
		Cmd:             []string{"python3", "-I", "-c", code},
		User:            r.cfg.User,
		WorkingDir:      "/tmp",
		Env:             []string{"PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1", "HOME=/tmp"},
		NetworkDisabled: true,
		Labels:          map[string]string{"app": "taskflow", "role": "code-exec"},
	}
	host := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=16m"},
		Resources: container.Resources{
			Memory:     mem,
			MemorySwap: mem,
			NanoCPUs:   r.cfg.NanoCPUs,
			PidsLimit:  &pids,
		},
	}
	return cfg, host
}

func (r *DockerRunner) Run(ctx context.Context, p execution.Program) (execution.RunResult, error) {
	if !strings.EqualFold(p.Language, "python") {
		return execution.RunResult{}, fmt.Errorf("no image for %q", p.Language)
	}

	cfg, host := r.containerSpec(p.Code)
	created, err := r.api.ContainerCreate(ctx, cfg, host, nil, nil, "")
	if err != nil {
		return execution.RunResult{}, fmt.Errorf("container create: %w", err)
	}
	id := created.ID

	// cleanup must outlive a cancelled request
	cleanupCtx, cancelCleanup := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancelCleanup()
	defer func() {
		if err := r.api.ContainerRemove(cleanupCtx, id, container.RemoveOptions{Force: true}); err != nil {
			zlog.Warn().Err(err).Str("container_id", id).Msg("sandbox: container remove failed")
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	if err := r.api.ContainerStart(runCtx, id, container.StartOptions{}); err != nil {
		return execution.RunResult{}, fmt.Errorf("container start: %w", err)
	}

	res := execution.RunResult{}
	statusCh, errCh := r.api.ContainerWait(runCtx, id, container.WaitConditionNotRunning)
	select {
	case st := <-statusCh:
		if st.Error != nil && st.Error.Message != "" {
			return execution.RunResult{}, fmt.Errorf("container wait: %s", st.Error.Message)
		}
		res.ExitCode = int(st.StatusCode)
	case err := <-errCh:
		switch {
		case ctx.Err() != nil:
			_ = r.api.ContainerKill(cleanupCtx, id, "KILL")
			return execution.RunResult{}, ctx.Err()
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res.TimedOut = true
			res.ExitCode = -1
			if kerr := r.api.ContainerKill(cleanupCtx, id, "KILL"); kerr != nil {
				zlog.Warn().Err(kerr).Str("container_id", id).Msg("sandbox: container kill failed")
			}
		default:
			return execution.RunResult{}, fmt.Errorf("container wait: %w", err)
		}
	}

	logs, err := r.api.ContainerLogs(cleanupCtx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		if res.TimedOut {
			return res, nil
		}
		return execution.RunResult{}, fmt.Errorf("container logs: %w", err)
	}
	defer logs.Close()

	stdout := newCappedBuffer(r.cfg.MaxOutput)
	stderr := newCappedBuffer(r.cfg.MaxOutput)
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil && !res.TimedOut {
		return execution.RunResult{}, fmt.Errorf("container logs: %w", err)
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, nil
}
