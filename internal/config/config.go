package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Mux      MuxConfig
	Encoder  EncoderConfig
	Proxy    ProxyConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	PublicBaseURL   string
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
}

// MuxConfig holds remote transcoding service configuration
type MuxConfig struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
	DataEnvKey  string
	Timeout     time.Duration
}

// EncoderConfig holds quality ladder encoder configuration
type EncoderConfig struct {
	TempDir     string
	FFmpegPath  string
	FFprobePath string
	Preset      string
}

// ProxyConfig holds streaming proxy configuration
type ProxyConfig struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	RateLimitRPS          int
	RateLimitBurst        int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "courseforge")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "10m")

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "course-videos")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)
	viper.SetDefault("storage.publicBaseURL", "")

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")

	// Mux defaults
	viper.SetDefault("mux.baseURL", "https://api.mux.com")
	viper.SetDefault("mux.tokenID", "")
	viper.SetDefault("mux.tokenSecret", "")
	viper.SetDefault("mux.dataEnvKey", "")
	viper.SetDefault("mux.timeout", "30s")

	// Encoder defaults
	viper.SetDefault("encoder.tempDir", "/tmp/courseforge-encode")
	viper.SetDefault("encoder.ffmpegPath", "ffmpeg")
	viper.SetDefault("encoder.ffprobePath", "ffprobe")
	viper.SetDefault("encoder.preset", "medium")

	// Proxy defaults
	viper.SetDefault("proxy.dialTimeout", "15s")
	viper.SetDefault("proxy.responseHeaderTimeout", "15s")
	viper.SetDefault("proxy.rateLimitRPS", 50)
	viper.SetDefault("proxy.rateLimitBurst", 100)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Auth defaults
	viper.SetDefault("auth.jwtSecret", "")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "courseforge-vod")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")
}
