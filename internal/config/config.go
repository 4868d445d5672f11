package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"chatlink/pkg/env"
)

// Backend names the realtime tree implementation to run against.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendFirebase = "firebase"
	BackendRemote   = "remote"
)

// Config holds all configuration for the application.
type Config struct {
	Backend  string // memory, redis, firebase, remote
	Redis    RedisConfig
	Firebase FirebaseConfig
	Remote   RemoteConfig
	MinIO    MinIOConfig
	JWT      JWTConfig
	Push     PushConfig
	Roster   RosterConfig
	Log      LogConfig
	Emulator EmulatorConfig
}

// RedisConfig holds Redis tree-backend configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// FirebaseConfig holds the hosted realtime database configuration.
type FirebaseConfig struct {
	DatabaseURL     string
	CredentialsFile string
	PollInterval    time.Duration
}

// RemoteConfig points at an emulator-protocol server.
type RemoteConfig struct {
	BaseURL string
}

// MinIOConfig holds object storage configuration for media messages.
type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// JWTConfig holds session token configuration.
type JWTConfig struct {
	Secret        string
	TokenDuration time.Duration
}

// PushConfig holds notification provider configuration. A provider is used
// only when its credentials are present.
type PushConfig struct {
	FCMCredentialsFile string
	FCMProjectID       string

	APNsKeyPath  string
	APNsKeyID    string
	APNsTeamID   string
	APNsBundleID string
	APNsProd     bool
}

// RosterConfig holds contact roster behavior toggles.
type RosterConfig struct {
	PropagateProfile bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// EmulatorConfig holds the local tree server's listen address.
type EmulatorConfig struct {
	Addr string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Backend: env.GetString("CHATLINK_BACKEND", BackendMemory),
		Redis: RedisConfig{
			Addr:     env.GetString("REDIS_ADDR", "localhost:6379"),
			Password: env.GetString("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			DatabaseURL:     env.GetString("FIREBASE_DATABASE_URL", ""),
			CredentialsFile: env.GetString("FIREBASE_CREDENTIALS_FILE", ""),
			PollInterval:    env.GetDuration("FIREBASE_POLL_INTERVAL", 2*time.Second),
		},
		Remote: RemoteConfig{
			BaseURL: env.GetString("REMOTE_BASE_URL", "http://localhost:9000"),
		},
		MinIO: MinIOConfig{
			Enabled:   env.GetBool("MINIO_ENABLED", false),
			Endpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9090"),
			AccessKey: env.GetString("MINIO_ACCESS_KEY", ""),
			SecretKey: env.GetString("MINIO_SECRET_KEY", ""),
			Bucket:    env.GetString("MINIO_BUCKET", "chatlink-media"),
			UseSSL:    env.GetBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:        env.GetString("JWT_SECRET", ""),
			TokenDuration: env.GetDuration("JWT_TOKEN_DURATION", 24*time.Hour),
		},
		Push: PushConfig{
			FCMCredentialsFile: env.GetString("FCM_CREDENTIALS_FILE", ""),
			FCMProjectID:       env.GetString("FCM_PROJECT_ID", ""),
			APNsKeyPath:        env.GetString("APNS_KEY_PATH", ""),
			APNsKeyID:          env.GetString("APNS_KEY_ID", ""),
			APNsTeamID:         env.GetString("APNS_TEAM_ID", ""),
			APNsBundleID:       env.GetString("APNS_BUNDLE_ID", ""),
			APNsProd:           env.GetBool("APNS_PRODUCTION", false),
		},
		Roster: RosterConfig{
			PropagateProfile: env.GetBool("ROSTER_PROPAGATE_PROFILE", false),
		},
		Log: LogConfig{
			Level:  env.GetString("LOG_LEVEL", "info"),
			Format: env.GetString("LOG_FORMAT", "text"),
		},
		Emulator: EmulatorConfig{
			Addr: env.GetString("EMULATOR_ADDR", ":9000"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendFirebase, BackendRemote:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendFirebase && c.Firebase.DatabaseURL == "" {
		return fmt.Errorf("FIREBASE_DATABASE_URL is required for the firebase backend")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
