package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Postgres  DBConfig
	Redis     RedisConfig
	S3        S3Config
	Session   SessionConfig
	Transcode TranscodeConfig
	Events    EventsConfig
	Logger    Logger
}

type ServerConfig struct {
	AppVersion   string
	Port         string
	Mode         string
	JwtSecretKey string
	HookToken    string
}

type SessionConfig struct {
	// HeartbeatTimeout bounds how long an unverified live session reloaded
	// after a restart survives without a fresh publish signal.
	HeartbeatTimeout time.Duration
	JanitorInterval  time.Duration
	PlaybackCacheTTL time.Duration
}

type TranscodeConfig struct {
	MaxConcurrentJobs int
	PollInterval      time.Duration
	CleanupInterval   time.Duration
	RetentionWindow   time.Duration
	MaxCPUUsage       float64
	PersistRetries    int
	PersistBackoff    time.Duration
	OutputDir         string
	Qualities         []QualityConfig
}

// QualityConfig describes one rung of the delivery ladder. Bitrate is kbps.
type QualityConfig struct {
	Name    string `mapstructure:"name"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	Bitrate int    `mapstructure:"bitrate"`
}

type EventsConfig struct {
	ChannelPrefix string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
}

type S3Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	InputBucket   string
	OutputBucket  string
	PublicBaseURL string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Transcode.MaxConcurrentJobs <= 0 {
		c.Transcode.MaxConcurrentJobs = 2
	}
	if c.Transcode.PollInterval <= 0 {
		c.Transcode.PollInterval = 5 * time.Second
	}
	if c.Transcode.PersistRetries <= 0 {
		c.Transcode.PersistRetries = 3
	}
	if c.Transcode.PersistBackoff <= 0 {
		c.Transcode.PersistBackoff = 200 * time.Millisecond
	}
	if c.Transcode.CleanupInterval <= 0 {
		c.Transcode.CleanupInterval = time.Hour
	}
	if c.Transcode.RetentionWindow <= 0 {
		c.Transcode.RetentionWindow = 7 * 24 * time.Hour
	}
	if c.Session.JanitorInterval <= 0 {
		c.Session.JanitorInterval = time.Minute
	}
	if c.Session.PlaybackCacheTTL <= 0 {
		c.Session.PlaybackCacheTTL = 30 * time.Second
	}
	if c.Session.HeartbeatTimeout <= 0 {
		c.Session.HeartbeatTimeout = 2 * time.Minute
	}
	return &c, nil
}
