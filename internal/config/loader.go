package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Env                    string `mapstructure:"env"`
	LogLevel               string `mapstructure:"log_level"`
	Port                   int    `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

func (a AppConfig) PortString() string { return fmt.Sprintf("%d", a.Port) }

type JWTConfig struct {
	Alg           string `mapstructure:"alg"`
	HSSecret      string `mapstructure:"hs_secret"`
	PublicKeyPath string `mapstructure:"public_key_path"`
	TTLHours      int    `mapstructure:"ttl_hours"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // mongo | memory
	SeedPath string `mapstructure:"seed_path"`
}

type MongoConfig struct {
	URI                 string `mapstructure:"uri"`
	Database            string `mapstructure:"database"`
	ConnectRetrySeconds int    `mapstructure:"connect_retry_seconds"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers             []string `mapstructure:"brokers"`
	TopicMessageEvents  string   `mapstructure:"topic_message_events"`
	TopicBroadcast      string   `mapstructure:"topic_broadcast"`
	PublishMessageEvent bool     `mapstructure:"publish_message_events"`
	BreakerMaxFailures  uint32   `mapstructure:"breaker_max_failures"`
	BreakerOpenSeconds  int      `mapstructure:"breaker_open_seconds"`
}

type BroadcastConfig struct {
	Backend string `mapstructure:"backend"` // local | redis | kafka
}

type PresenceConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	SendBuffer           int   `mapstructure:"send_buffer"`
	RateLimitPerSec      int   `mapstructure:"rate_limit_per_sec"`
}

type RateLimitConfig struct {
	RESTPerMinute int `mapstructure:"rest_per_minute"`
}

type MessagesConfig struct {
	EditWindowMinutes int `mapstructure:"edit_window_minutes"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Store     StoreConfig     `mapstructure:"store"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Presence  PresenceConfig  `mapstructure:"presence"`
	WS        WSConfig        `mapstructure:"ws"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`

	// derived
	PingInterval    time.Duration `mapstructure:"-"`
	WriteDeadline   time.Duration `mapstructure:"-"`
	ShutdownTimeout time.Duration `mapstructure:"-"`
	TokenTTL        time.Duration `mapstructure:"-"`
	EditWindow      time.Duration `mapstructure:"-"`
	MongoRetry      time.Duration `mapstructure:"-"`
	BreakerOpen     time.Duration `mapstructure:"-"`
}

func (c *Config) Development() bool { return c.App.Env == "development" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.port", 8085)
	v.SetDefault("app.shutdown_timeout_seconds", 10)
	v.SetDefault("jwt.alg", "HS256")
	v.SetDefault("jwt.hs_secret", "")
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("jwt.ttl_hours", 7*24)
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.seed_path", "")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "chatdb")
	v.SetDefault("mongo.connect_retry_seconds", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ws")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_message_events", "message.events")
	v.SetDefault("kafka.topic_broadcast", "ws.broadcast")
	v.SetDefault("kafka.publish_message_events", false)
	v.SetDefault("kafka.breaker_max_failures", 5)
	v.SetDefault("kafka.breaker_open_seconds", 30)
	v.SetDefault("broadcast.backend", "local")
	v.SetDefault("presence.backend", "memory")
	v.SetDefault("ws.ping_interval_seconds", 25)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_size_bytes", 65536)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.rate_limit_per_sec", 20)
	v.SetDefault("messages.edit_window_minutes", 15)
	v.SetDefault("ratelimit.rest_per_minute", 120)
}

// Load reads the YAML file at path (optional) and applies APP_* env overrides,
// e.g. APP_REDIS_ADDR or APP_JWT_HS_SECRET.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// APP_KAFKA_BROKERS arrives as a single comma separated string
	if len(c.Kafka.Brokers) == 1 && strings.Contains(c.Kafka.Brokers[0], ",") {
		c.Kafka.Brokers = strings.Split(c.Kafka.Brokers[0], ",")
	}

	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.ShutdownTimeout = time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
	c.TokenTTL = time.Duration(c.JWT.TTLHours) * time.Hour
	c.EditWindow = time.Duration(c.Messages.EditWindowMinutes) * time.Minute
	c.MongoRetry = time.Duration(c.Mongo.ConnectRetrySeconds) * time.Second
	c.BreakerOpen = time.Duration(c.Kafka.BreakerOpenSeconds) * time.Second

	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *Config) error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.New("app.port missing or invalid")
	}

	switch strings.ToUpper(c.JWT.Alg) {
	case "RS256":
		if c.JWT.PublicKeyPath == "" {
			return errors.New("jwt.public_key_path required for RS256")
		}
	case "HS256":
		if c.JWT.HSSecret == "" {
			return errors.New("jwt.hs_secret required for HS256")
		}
	default:
		return errors.New("invalid jwt.alg (use RS256 or HS256)")
	}

	switch c.Store.Driver {
	case "memory":
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("mongo.uri and mongo.database required for mongo store")
		}
	default:
		return fmt.Errorf("invalid store.driver %q", c.Store.Driver)
	}

	needsRedis := c.Broadcast.Backend == "redis" || c.Presence.Backend == "redis"
	if needsRedis && !strings.Contains(c.Redis.Addr, ":") {
		return fmt.Errorf("invalid redis.addr %q (must be host:port)", c.Redis.Addr)
	}

	switch c.Broadcast.Backend {
	case "local", "redis":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.TopicBroadcast == "" {
			return errors.New("kafka.brokers and kafka.topic_broadcast required for kafka broadcast")
		}
	default:
		return fmt.Errorf("invalid broadcast.backend %q", c.Broadcast.Backend)
	}

	switch c.Presence.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid presence.backend %q", c.Presence.Backend)
	}

	if c.Kafka.PublishMessageEvent && (len(c.Kafka.Brokers) == 0 || c.Kafka.TopicMessageEvents == "") {
		return errors.New("kafka.topic_message_events required when publishing message events")
	}
	if c.WS.SendBuffer <= 0 {
		return errors.New("ws.send_buffer must be positive")
	}
	return nil
}
