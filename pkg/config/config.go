package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local" validate:"oneof=local dev prod"`
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP      HTTP      `yaml:"http"`
	Postgres  PG        `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Auth      Auth      `yaml:"auth"`
	Limiter   Limiter   `yaml:"limiter"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s" validate:"gt=0"`
}

type PG struct {
	URL           string `yaml:"url" env:"DB_URL" validate:"required"`
	MigrationsDir string `yaml:"migrations_dir" env:"MIGRATIONS_DIR" env-default:"./migrations"`
	// SingleStatement is set behind poolers that cannot hold a transaction open
	// across statements; multi-step writes then run sequentially.
	SingleStatement bool  `yaml:"single_statement" env:"DB_SINGLE_STATEMENT"`
	MaxConns        int32 `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10" validate:"gte=1"`
}

type Redis struct {
	Addr      string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	StatusTTL time.Duration `yaml:"status_ttl" env:"REDIS_STATUS_TTL" env-default:"30s"`
}

type Kafka struct {
	Brokers   []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	ShopTopic string   `yaml:"shop_topic" env:"KAFKA_SHOP_TOPIC" env-default:"shop_events"`
	UserTopic string   `yaml:"user_topic" env:"KAFKA_USER_TOPIC" env-default:"user_events"`
	GroupID   string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"shop-service-group"`
}

type Auth struct {
	AccessSecret string        `yaml:"access_secret" env:"ACCESS_SECRET" validate:"required,min=16"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

type Telemetry struct {
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"shop-service"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
}

// Load reads the yaml file at path, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/local.yaml"
	}

	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}
