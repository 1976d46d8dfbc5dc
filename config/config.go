package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TokenConfig struct {
	// Posture is "development" or "production". Production refuses the
	// built-in fallback signing secret.
	Posture         string `yaml:"posture"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
	PurposeTTLDays  int    `yaml:"purpose_ttl_days"`
}

func (c TokenConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

type DeviceTrustConfig struct {
	TTLDays int `yaml:"ttl_days"`
}

func (c DeviceTrustConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

type LoginConfig struct {
	MaxFailures          int `yaml:"max_failures"`
	FailureWindowMinutes int `yaml:"failure_window_minutes"`
}

func (c LoginConfig) FailureWindow() time.Duration {
	return time.Duration(c.FailureWindowMinutes) * time.Minute
}

type OutboxConfig struct {
	BaseDelaySeconds   int `yaml:"base_delay_seconds"`
	MaxDelaySeconds    int `yaml:"max_delay_seconds"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`
	MaxAttempts        int `yaml:"max_attempts"`
	BatchSize          int `yaml:"batch_size"`
	IntervalSeconds    int `yaml:"interval_seconds"`
}

func (c OutboxConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySeconds) * time.Second
}

func (c OutboxConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySeconds) * time.Second
}

func (c OutboxConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c OutboxConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

type TransportConfig struct {
	// Kind is "amqp" or "log". The log transport only prints the message
	// and is meant for local development.
	Kind       string `yaml:"kind"`
	AMQPURL    string `yaml:"amqp_url"`
	RoutingKey string `yaml:"routing_key"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type Config struct {
	DB          DBConfig          `yaml:"db"`
	Redis       RedisConfig       `yaml:"redis"`
	Token       TokenConfig       `yaml:"token"`
	DeviceTrust DeviceTrustConfig `yaml:"device_trust"`
	Login       LoginConfig       `yaml:"login"`
	Outbox      OutboxConfig      `yaml:"outbox"`
	Transport   TransportConfig   `yaml:"transport"`
	Server      ServerConfig      `yaml:"server"`
}

func Load() *Config {
	f, err := os.Open("config.yaml")
	if err != nil {
		log.Fatalf("failed to open config.yaml: %v", err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config.yaml: %v", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Token.Posture == "" {
		cfg.Token.Posture = "development"
	}
	if cfg.Token.SessionTTLHours == 0 {
		cfg.Token.SessionTTLHours = 24
	}
	if cfg.Token.PurposeTTLDays == 0 {
		cfg.Token.PurposeTTLDays = 30
	}
	if cfg.DeviceTrust.TTLDays == 0 {
		cfg.DeviceTrust.TTLDays = 30
	}
	if cfg.Login.MaxFailures == 0 {
		cfg.Login.MaxFailures = 5
	}
	if cfg.Login.FailureWindowMinutes == 0 {
		cfg.Login.FailureWindowMinutes = 15
	}
	if cfg.Outbox.BaseDelaySeconds == 0 {
		cfg.Outbox.BaseDelaySeconds = 30
	}
	if cfg.Outbox.MaxDelaySeconds == 0 {
		cfg.Outbox.MaxDelaySeconds = 3600
	}
	if cfg.Outbox.SendTimeoutSeconds == 0 {
		cfg.Outbox.SendTimeoutSeconds = 10
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = 5
	}
	if cfg.Outbox.BatchSize == 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.IntervalSeconds == 0 {
		cfg.Outbox.IntervalSeconds = 10
	}
	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = "log"
	}
	if cfg.Transport.RoutingKey == "" {
		cfg.Transport.RoutingKey = "email.send"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
}

func overrideFromEnv(cfg *Config) {
	// DB配置
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	// Redis配置
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	// Token配置
	if posture := os.Getenv("TOKEN_POSTURE"); posture != "" {
		cfg.Token.Posture = posture
	}

	// Transport配置
	if url := os.Getenv("AMQP_URL"); url != "" {
		cfg.Transport.AMQPURL = url
	}

	// Server配置
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
}
