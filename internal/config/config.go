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

type AppConf struct {
	Env             string        `mapstructure:"env"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConf struct {
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

// SecurityConf carries every tunable of the account-security core so none of
// it is read from ambient process state inside the components.
type SecurityConf struct {
	BcryptCost         int           `mapstructure:"bcrypt_cost"`
	OTPTTL             time.Duration `mapstructure:"otp_ttl"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	LockDuration       time.Duration `mapstructure:"lock_duration"`
	MaxLoginAttempts   int           `mapstructure:"max_login_attempts"`
	OTPRequestsPerHour int           `mapstructure:"otp_requests_per_hour"`
}

type KafkaConf struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type BrevoConf struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type TwilioConf struct {
	Enabled    bool   `mapstructure:"enabled"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

type Config struct {
	App      AppConf      `mapstructure:"app"`
	Mongo    MongoConf    `mapstructure:"mongodb"`
	Redis    RedisConf    `mapstructure:"redis"`
	JWT      JWTConf      `mapstructure:"jwt"`
	Security SecurityConf `mapstructure:"security"`
	Kafka    KafkaConf    `mapstructure:"kafka"`
	Brevo    BrevoConf    `mapstructure:"brevo"`
	Twilio   TwilioConf   `mapstructure:"twilio"`
}

// Load reads the YAML config at path and applies environment overrides
// (APP_PORT, MONGODB_URI, JWT_SECRET, ...). A .env file is honoured when
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.read_timeout", 10*time.Second)
	v.SetDefault("app.write_timeout", 10*time.Second)
	v.SetDefault("app.idle_timeout", time.Minute)
	v.SetDefault("app.shutdown_timeout", 10*time.Second)
	v.SetDefault("mongodb.database", "blogapp")
	v.SetDefault("mongodb.collection", "users")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.otp_ttl", 5*time.Minute)
	v.SetDefault("security.token_ttl", 10*time.Minute)
	v.SetDefault("security.lock_duration", 2*time.Hour)
	v.SetDefault("security.max_login_attempts", 5)
	v.SetDefault("security.otp_requests_per_hour", 5)
	v.SetDefault("kafka.topic", "user-events")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, so bind the env-only ones.
	_ = v.BindEnv("mongodb.uri", "MONGODB_URI")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("brevo.api_key", "BREVO_API_KEY")
	_ = v.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	_ = v.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")

	// A missing config file is fine, defaults plus env overrides cover it.
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGODB_URI is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}
