package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/baechuer/taskflow/internal/application/auth"
	"github.com/baechuer/taskflow/internal/application/employee"
	"github.com/baechuer/taskflow/internal/application/execution"
	"github.com/baechuer/taskflow/internal/application/meeting"
	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/config"
	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/infrastructure/archive"
	"github.com/baechuer/taskflow/internal/infrastructure/db/postgres"
	"github.com/baechuer/taskflow/internal/infrastructure/memory"
	"github.com/baechuer/taskflow/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/taskflow/internal/infrastructure/redis"
	"github.com/baechuer/taskflow/internal/infrastructure/sandbox"
	"github.com/baechuer/taskflow/internal/infrastructure/security"
	"github.com/baechuer/taskflow/internal/logger"
	"github.com/baechuer/taskflow/internal/transport/http/handlers"
	"github.com/baechuer/taskflow/internal/transport/http/middleware"
	"github.com/baechuer/taskflow/internal/transport/http/response"
	"github.com/baechuer/taskflow/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

// Server is the configured HTTP server plus how long it may take to drain.
type Server struct {
	*http.Server
	ShutdownTimeout time.Duration
}

func NewServer() (*Server, func(), error) {
	return newServer(DefaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string, debug bool) (*sql.DB, error)

	// NewRedis is only called when REDIS_ADDR is set.
	NewRedis func(addr, password string, db int) *redis.Client

	// NewPublisher is only called when RABBIT_URL is set.
	NewPublisher func(url, exchange string) (Publisher, error)

	NewRunner func(cfg config.SandboxConfig) (execution.Runner, error)

	// NewArchive is only called when an archive bucket is configured.
	NewArchive func(ctx context.Context, cfg config.ArchiveConfig) (execution.Archiver, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// Publisher is every event the application emits.
type Publisher interface {
	PublishTaskCreated(ctx context.Context, evt domain.TaskCreatedEvent) error
	PublishTaskCompleted(ctx context.Context, evt domain.TaskCompletedEvent) error
	PublishMeetingScheduled(ctx context.Context, evt domain.MeetingScheduledEvent) error
	PublishTelemetry(ctx context.Context, payload []byte) error
}

// stores groups the repositories so both storage backends wire the same way.
type stores struct {
	users interface {
		auth.UserRepo
		employee.Repo
	}
	tasks interface {
		task.TaskRepo
		execution.TaskCompleter
	}
	meetings meeting.Repo
	pinger   handlers.Pinger
}

type sessionStore interface {
	auth.SessionStore
	employee.SessionRevoker
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) storage
	st, closeDB, err := openStores(deps, cfg)
	if err != nil {
		return fail(err)
	}
	if closeDB != nil {
		cleanupFns = append(cleanupFns, closeDB)
	}

	// 2) redis (best-effort)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process sessions and limits")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	var sessions sessionStore
	if redisCli != nil {
		sessions = redis.NewSessionStore(redisCli)
	} else {
		sessions = memory.NewSessionStore()
	}

	// 3) publisher
	var pub Publisher = memory.NewNoopPublisher()
	if cfg.RabbitURL != "" && deps.NewPublisher != nil {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			pub = p
			if c, ok := p.(interface{ Close() error }); ok {
				cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			}
		case cfg.Env == "dev":
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		default:
			return fail(err)
		}
	}

	// 4) code runner + archive
	runner, err := deps.NewRunner(cfg.Sandbox)
	if err != nil {
		return fail(err)
	}
	if c, ok := runner.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	var arch execution.Archiver
	if cfg.Archive.Bucket != "" && deps.NewArchive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a, err := deps.NewArchive(ctx, cfg.Archive)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("execution archive: %w", err))
		}
		arch = a
	}

	// 5) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	// 6) services
	authSvc := auth.NewService(st.users, hasher, signer, sessions, auth.Config{
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}).WithAudit(audit)
	taskSvc := task.New(st.tasks, st.users, pub, nil)
	employeeSvc := employee.New(st.users, sessions).WithAudit(audit)
	meetingSvc := meeting.New(st.meetings, pub, nil)
	engine := execution.NewEngine(runner, st.tasks, pub, arch, execution.Config{
		MaxConcurrent: int64(cfg.Sandbox.MaxConcurrent),
		QueueWait:     cfg.Sandbox.QueueWait,
	}).WithAudit(audit)

	// 7) middleware
	authMW := middleware.Auth(authSvc, response.WriteError)

	var fwLimiter *redis.FixedWindowLimiter
	if redisCli != nil {
		fwLimiter = redis.NewFixedWindowLimiter(redisCli)
	}
	rl := func(key string, limit int) func(http.Handler) http.Handler {
		if fwLimiter == nil {
			return middleware.PerUserLimit(limit, time.Minute, response.WriteError)
		}
		return middleware.RateLimitFixedWindow(
			fwLimiter,
			middleware.FixedWindowConfig{
				RouteKey: key,
				Limit:    limit,
				Window:   time.Minute,
			},
			response.WriteError,
		)
	}

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health:    handlers.NewHealthHandler(st.pinger),
		Auth:      handlers.NewAuthHandler(authSvc),
		Tasks:     handlers.NewTasksHandler(taskSvc, employeeSvc),
		Employees: handlers.NewEmployeesHandler(employeeSvc),
		Meetings:  handlers.NewMeetingsHandler(meetingSvc),
		Code:      handlers.NewCodeHandler(engine),
		Telemetry: handlers.NewTelemetryHandler(pub),

		AuthMW:     authMW,
		AuthRateMW: rl("auth", cfg.AuthRateLimit),
		ExecRateMW: rl("code.execute", cfg.ExecRateLimit),
	})
	if err != nil {
		return fail(err)
	}

	// 9) server
	grace := cfg.ShutdownTimeout
	if grace <= 0 {
		grace = 15 * time.Second
	}
	srv := &Server{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
			IdleTimeout:  cfg.HTTPIdleTimeout,
		},
		ShutdownTimeout: grace,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func openStores(deps Deps, cfg *config.Config) (stores, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Logger.Warn().Msg("using in-memory storage; data is lost on restart")
		mem := memory.NewDB()
		return stores{
			users:    memory.NewUserRepo(mem),
			tasks:    memory.NewTaskRepo(mem),
			meetings: memory.NewMeetingRepo(mem),
		}, nil, nil
	}

	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return stores{}, nil, err
	}
	closeDB := func() { _ = db.Close() }

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		applied, err := postgres.Migrate(ctx, db)
		cancel()
		if err != nil {
			closeDB()
			return stores{}, nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Logger.Info().Strs("versions", applied).Msg("migrations applied")
		}
	}

	return stores{
		users:    postgres.NewUserRepo(db),
		tasks:    postgres.NewTaskRepo(db),
		meetings: postgres.NewMeetingRepo(db),
		pinger:   db,
	}, closeDB, nil
}

func audit(action string, fields map[string]string) {
	evt := logger.Logger.Info().
		Bool("audit", true).
		Str("action", action)
	for k, v := range fields {
		evt = evt.Str(k, v)
	}
	evt.Msg("audit")
}

/*
========================
 Default deps (prod)
========================
*/

func DefaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis: func(addr, password string, db int) *redis.Client {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange)
		},
		NewRunner: NewRunner,
		NewArchive: func(ctx context.Context, cfg config.ArchiveConfig) (execution.Archiver, error) {
			return archive.NewS3Archive(ctx, cfg)
		},
		NewRouter: router.New,
	}
}

// NewRunner builds the code runner SANDBOX_RUNNER selects.
func NewRunner(sc config.SandboxConfig) (execution.Runner, error) {
	switch sc.Runner {
	case config.RunnerDocker:
		user := ""
		if sc.UID > 0 {
			user = fmt.Sprintf("%d:%d", sc.UID, sc.GID)
		}
		return sandbox.NewDockerRunner(sandbox.DockerConfig{
			Image:    sc.DockerImage,
			MemoryMB: sc.MemoryMB,
			User:     user,
		})
	case config.RunnerLocal, "":
		logger.Logger.Warn().Msg("local code runner is not isolated from the host")
		return sandbox.NewLocalRunner(sandbox.LocalConfig{
			Interpreters: sandbox.PythonInterpreters(sc.PythonBin),
			UID:          sc.UID,
			GID:          sc.GID,
			MemoryBytes:  uint64(sc.MemoryMB) << 20,
		}), nil
	default:
		return nil, fmt.Errorf("unknown sandbox runner %q", sc.Runner)
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
