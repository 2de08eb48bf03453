package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	RunnerLocal  = "local"
	RunnerDocker = "docker"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string
	//Auth / Security
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	// Storage
	Storage     string // postgres / memory
	DBAddr      string
	DBDebug     bool
	AutoMigrate bool

	// Optional infrastructure. Empty means "run without it".
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// ShutdownTimeout is the grace period for in-flight requests on SIGTERM.
	ShutdownTimeout time.Duration

	// Rate limiting
	AuthRateLimit int // per IP per minute on login/register
	ExecRateLimit int // per user per minute on /code/execute

	Sandbox SandboxConfig
	Archive ArchiveConfig
}

type SandboxConfig struct {
	Runner        string // local / docker
	PythonBin     string
	UID           int // 0 = keep the server's uid
	GID           int
	MemoryMB      int
	DockerImage   string
	MaxConcurrent int
	QueueWait     time.Duration // how long a request waits for a free slot
}

// ArchiveConfig points at S3-compatible storage for execution transcripts.
// An empty Bucket disables archiving.
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "taskflow"),
		Storage:        strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RabbitURL:      getEnv("RABBIT_URL", ""),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "taskflow.events"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	var err error
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	switch cfg.Storage {
	case StoragePostgres:
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
	case StorageMemory:
		if cfg.Env == "prod" {
			return nil, fmt.Errorf("STORAGE=memory is not allowed when ENV=prod")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE %q (want postgres or memory)", cfg.Storage)
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.AutoMigrate, err = getBool("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// The write timeout has to outlive a full code execution.
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.AuthRateLimit, err = getInt("AUTH_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.ExecRateLimit, err = getInt("EXEC_RATE_LIMIT", 30); err != nil {
		return nil, err
	}

	if cfg.Sandbox, err = loadSandbox(); err != nil {
		return nil, err
	}
	if cfg.Archive, err = loadArchive(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadSandbox() (SandboxConfig, error) {
	sc := SandboxConfig{
		Runner:      strings.ToLower(getEnv("SANDBOX_RUNNER", RunnerLocal)),
		PythonBin:   getEnv("PYTHON_BIN", "python3"),
		DockerImage: getEnv("SANDBOX_DOCKER_IMAGE", "python:3.12-alpine"),
	}
	if sc.Runner != RunnerLocal && sc.Runner != RunnerDocker {
		return sc, fmt.Errorf("invalid SANDBOX_RUNNER %q (want local or docker)", sc.Runner)
	}

	var err error
	if sc.UID, err = getInt("SANDBOX_UID", 0); err != nil {
		return sc, err
	}
	if sc.GID, err = getInt("SANDBOX_GID", sc.UID); err != nil {
		return sc, err
	}
	if sc.MemoryMB, err = getInt("SANDBOX_MEMORY_MB", 256); err != nil {
		return sc, err
	}
	if sc.MaxConcurrent, err = getInt("EXEC_MAX_CONCURRENT", 4); err != nil {
		return sc, err
	}
	if sc.MaxConcurrent < 1 {
		return sc, fmt.Errorf("EXEC_MAX_CONCURRENT must be >= 1")
	}
	if sc.QueueWait, err = getDuration("EXEC_QUEUE_WAIT", 5*time.Second); err != nil {
		return sc, err
	}
	return sc, nil
}

func loadArchive() (ArchiveConfig, error) {
	ac := ArchiveConfig{
		Bucket:          getEnv("ARCHIVE_S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		Region:          getEnv("S3_REGION", "us-east-1"),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
	}
	var err error
	if ac.UsePathStyle, err = getBool("S3_USE_PATH_STYLE", ac.Endpoint != ""); err != nil {
		return ac, err
	}
	return ac, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return i, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
