package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Driver    DriverConfig    `mapstructure:"driver"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RelayConfig struct {
	InboxMaxRecords   int           `mapstructure:"inbox_max_records"`
	ValueMaxLen       int           `mapstructure:"value_max_len"`
	ErrorDetailMaxLen int           `mapstructure:"error_detail_max_len"`
	AckRetention      time.Duration `mapstructure:"ack_retention"`
	WebhookToken      string        `mapstructure:"webhook_token"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type ProviderConfig struct {
	Name       string        `mapstructure:"name"`
	FlowURL    string        `mapstructure:"flow_url"`
	AccountSID string        `mapstructure:"account_sid"`
	FromNumber string        `mapstructure:"from_number"`
	TimeoutMs  int           `mapstructure:"timeout_ms"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | clickhouse
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type JournalConfig struct {
	Sinks     []string       `mapstructure:"sinks"` // sql | kafka
	SQL       DatabaseConfig `mapstructure:"sql"`
	BatchSize int            `mapstructure:"batch_size"`
	BatchWait time.Duration  `mapstructure:"batch_wait"`
}

// Enabled reports whether the named sink is configured.
func (j JournalConfig) Enabled(sink string) bool {
	for _, s := range j.Sinks {
		if strings.EqualFold(strings.TrimSpace(s), sink) {
			return true
		}
	}
	return false
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type DriverConfig struct {
	RelayURL     string            `mapstructure:"relay_url"`
	APIKey       string            `mapstructure:"api_key"`
	ScanRate     time.Duration     `mapstructure:"scan_rate"`
	PollCooldown time.Duration     `mapstructure:"poll_cooldown"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	AckRetention time.Duration     `mapstructure:"ack_retention"`
	MetricsAddr  string            `mapstructure:"metrics_addr"`
	AckUsers     map[string]string `mapstructure:"ack_users"` // user id -> PIN
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (NOTIFY_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (NOTIFY_PROVIDER_ACCOUNT_SID, ...)
	v.SetEnvPrefix("NOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
