package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NUMDUEL_REDIS_URL
const EnvPrefix = "NUMDUEL"

// Config is the server configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Game        GameConfig        `mapstructure:"game"`
	Matchmaking MatchmakingConfig `mapstructure:"matchmaking"`
	Rewards     RewardsConfig     `mapstructure:"rewards"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the storage backend
type StorageConfig struct {
	Type string `mapstructure:"type"`
}

// RedisConfig configures the Redis store
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	GuestPlayerTTL time.Duration `mapstructure:"guest_player_ttl"`
	RoomTTL        time.Duration `mapstructure:"room_ttl"`
}

// NotifyConfig selects the notification backend
type NotifyConfig struct {
	Type    string        `mapstructure:"type"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NATSConfig configures the NATS notifier
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// AuthConfig configures player sessions
type AuthConfig struct {
	SessionDuration time.Duration `mapstructure:"session_duration"`
	StartingRating  int           `mapstructure:"starting_rating"`
}

// GameConfig configures game sessions
type GameConfig struct {
	ForfeitTimeout time.Duration `mapstructure:"forfeit_timeout"`
	SaveAttempts   int           `mapstructure:"save_attempts"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

// MatchmakingConfig configures the queues
type MatchmakingConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	BaseThreshold int           `mapstructure:"base_threshold"`
	ThresholdStep int           `mapstructure:"threshold_step"`
	StepInterval  time.Duration `mapstructure:"step_interval"`
	MaxThreshold  int           `mapstructure:"max_threshold"`
}

// RewardsConfig configures stat changes for decided matches
type RewardsConfig struct {
	RatingChange         int `mapstructure:"rating_change"`
	WinnerXP             int `mapstructure:"winner_xp"`
	LoserXP              int `mapstructure:"loser_xp"`
	WinnerCoins          int `mapstructure:"winner_coins"`
	RankedCoinMultiplier int `mapstructure:"ranked_coin_multiplier"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. An empty path looks for
// numduel.yaml in the working directory and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("numduel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.type", "memory")

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.guest_player_ttl", "24h")
	v.SetDefault("redis.room_ttl", "168h")

	v.SetDefault("notify.type", "log")
	v.SetDefault("notify.timeout", "5s")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "numduel.notify")

	v.SetDefault("auth.session_duration", "24h")
	v.SetDefault("auth.starting_rating", 1000)

	v.SetDefault("game.forfeit_timeout", "60s")
	v.SetDefault("game.save_attempts", 3)
	v.SetDefault("game.retry_backoff", "50ms")

	v.SetDefault("matchmaking.sweep_interval", "3s")
	v.SetDefault("matchmaking.base_threshold", 100)
	v.SetDefault("matchmaking.threshold_step", 50)
	v.SetDefault("matchmaking.step_interval", "10s")
	v.SetDefault("matchmaking.max_threshold", 600)

	v.SetDefault("rewards.rating_change", 25)
	v.SetDefault("rewards.winner_xp", 50)
	v.SetDefault("rewards.loser_xp", 10)
	v.SetDefault("rewards.winner_coins", 20)
	v.SetDefault("rewards.ranked_coin_multiplier", 2)
}

// Validate checks settings that have no safe fallback
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("storage.type must be memory or redis, got %q", c.Storage.Type)
	}
	switch c.Notify.Type {
	case "log", "nats":
	default:
		return fmt.Errorf("notify.type must be log or nats, got %q", c.Notify.Type)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Game.ForfeitTimeout <= 0 {
		return errors.New("game.forfeit_timeout must be positive")
	}
	if c.Matchmaking.MaxThreshold < c.Matchmaking.BaseThreshold {
		return errors.New("matchmaking.max_threshold must not be below base_threshold")
	}
	return nil
}

// NewLogger builds the process logger
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
