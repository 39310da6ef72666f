package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	LockRedis = "redis"
	LockLocal = "local"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Otel     OtelConfig
}

type ServerConfig struct {
	AppEnv          string
	GRPCPort        string
	HTTPPort        string
	AllowOrigins    string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver           string
	DSN              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	OperationTimeout time.Duration
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	LockTTL     time.Duration
	LockBackend string
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	GroupID    string
	InTopic    string
	OutTopic   string
	ErrorTopic string
}

// OtelConfig leaves tracing disabled while Endpoint is empty.
type OtelConfig struct {
	ServiceName string
	Endpoint    string
	URLPath     string
	AuthHeader  string
}

// LoadEnv reads the configuration from the environment. The Redis lock TTL is
// raised to the operation timeout when it is shorter, so a lock cannot expire
// under an operation that still runs.
func LoadEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "dev"),
			GRPCPort:        getEnv("GRPC_PORT", ":50051"),
			HTTPPort:        getEnv("HTTP_PORT", ":8080"),
			AllowOrigins:    getEnv("HTTP_ALLOW_ORIGINS", "*"),
			ShutdownTimeout: getEnvSeconds("SHUTDOWN_TIMEOUT_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", DriverMySQL),
			DSN:              getEnv("DB_DSN", "root:root@tcp(localhost:3306)/itemstock"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime:  getEnvSeconds("DB_CONN_MAX_LIFETIME_SECONDS", 300),
			ConnMaxIdleTime:  getEnvSeconds("DB_CONN_MAX_IDLE_TIME_SECONDS", 60),
			OperationTimeout: getEnvSeconds("DB_OPERATION_TIMEOUT_SECONDS", 5),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 100),
			LockTTL:     getEnvSeconds("REDIS_LOCK_TTL_SECONDS", 5),
			LockBackend: getEnv("LOCK_BACKEND", LockRedis),
		},
		Kafka: KafkaConfig{
			Enabled:    getEnvBool("KAFKA_ENABLED", false),
			Brokers:    getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID:    getEnv("KAFKA_GROUP_ID", "item-stock"),
			InTopic:    getEnv("KAFKA_TOPIC_INCREMENT_IN", "increment-stock-in"),
			OutTopic:   getEnv("KAFKA_TOPIC_INCREMENT_OUT", "increment-stock-out"),
			ErrorTopic: getEnv("KAFKA_TOPIC_INCREMENT_ERROR", "increment-stock-error"),
		},
		Otel: OtelConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "item-stock"),
			Endpoint:    getEnv("OTEL_ENDPOINT", ""),
			URLPath:     getEnv("OTEL_TRACES_PATH", "/v1/traces"),
			AuthHeader:  getEnv("OTEL_AUTH_HEADER", ""),
		},
	}
	if cfg.Redis.LockTTL < cfg.Database.OperationTimeout {
		cfg.Redis.LockTTL = cfg.Database.OperationTimeout
	}
	return cfg
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Redis.LockBackend == LockRedis || c.Kafka.Enabled
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
