package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	DockerPortGRPC int `koanf:"docker_port_grpc"`
	DockerPortREST int `koanf:"docker_port_rest"`

	StorageHostGRPC string `koanf:"storage_host_grpc"`
	StoragePortGRPC int    `koanf:"storage_port_grpc"`
	GisHostGRPC     string `koanf:"gis_host_grpc"`
	GisPortGRPC     int    `koanf:"gis_port_grpc"`

	AMQP  AMQPConfig  `koanf:"amqp"`
	Redis RedisConfig `koanf:"redis"`

	// LogConfig optionally points to a YAML file holding a zap config.
	LogConfig string `koanf:"log_config"`

	RingbufferSizeBytes    int `koanf:"ringbuffer_size_bytes"`
	GisPushCadenceMs       int `koanf:"gis_push_cadence_ms"`
	GisMaxMessageSizeBytes int `koanf:"gis_max_message_size_bytes"`

	RestRequestLimitPerSecond      int    `koanf:"rest_request_limit_per_second"`
	RestConcurrencyLimitPerService int    `koanf:"rest_concurrency_limit_per_service"`
	RestCorsAllowedOrigin          string `koanf:"rest_cors_allowed_origin"`
}

type AMQPConfig struct {
	URL  string     `koanf:"url"`
	Pool PoolConfig `koanf:"pool"`
}

type RedisConfig struct {
	URL  string     `koanf:"url"`
	Pool PoolConfig `koanf:"pool"`
}

type PoolConfig struct {
	MaxSize int `koanf:"max_size"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load YAML file first.
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Overlay environment variables: REDIS__POOL__MAX_SIZE → redis.pool.max_size,
	// GIS_PUSH_CADENCE_MS → gis_push_cadence_ms.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env config: %w", err)
	}

	cfg := &Config{
		DockerPortGRPC:  50051,
		DockerPortREST:  8000,
		StorageHostGRPC: "localhost",
		StoragePortGRPC: 50051,
		GisHostGRPC:     "localhost",
		GisPortGRPC:     50051,
		AMQP: AMQPConfig{
			Pool: PoolConfig{MaxSize: 16},
		},
		Redis: RedisConfig{
			Pool: PoolConfig{MaxSize: 16},
		},
		RingbufferSizeBytes:            4096,
		GisPushCadenceMs:               50,
		GisMaxMessageSizeBytes:         2048,
		RestRequestLimitPerSecond:      2,
		RestConcurrencyLimitPerService: 5,
		RestCorsAllowedOrigin:          "http://localhost:3000",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DockerPortGRPC <= 0 || c.DockerPortGRPC > 65535 {
		return fmt.Errorf("config: docker_port_grpc out of range (got %d)", c.DockerPortGRPC)
	}
	if c.DockerPortREST <= 0 || c.DockerPortREST > 65535 {
		return fmt.Errorf("config: docker_port_rest out of range (got %d)", c.DockerPortREST)
	}
	if c.StorageHostGRPC == "" {
		return fmt.Errorf("config: storage_host_grpc is required")
	}
	if c.StoragePortGRPC <= 0 || c.StoragePortGRPC > 65535 {
		return fmt.Errorf("config: storage_port_grpc out of range (got %d)", c.StoragePortGRPC)
	}
	if c.GisHostGRPC == "" {
		return fmt.Errorf("config: gis_host_grpc is required")
	}
	if c.GisPortGRPC <= 0 || c.GisPortGRPC > 65535 {
		return fmt.Errorf("config: gis_port_grpc out of range (got %d)", c.GisPortGRPC)
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("config: redis.url is required")
	}
	if c.Redis.Pool.MaxSize <= 0 {
		return fmt.Errorf("config: redis.pool.max_size must be > 0 (got %d)", c.Redis.Pool.MaxSize)
	}
	if c.AMQP.Pool.MaxSize <= 0 {
		return fmt.Errorf("config: amqp.pool.max_size must be > 0 (got %d)", c.AMQP.Pool.MaxSize)
	}
	if c.RingbufferSizeBytes <= 0 {
		return fmt.Errorf("config: ringbuffer_size_bytes must be > 0 (got %d)", c.RingbufferSizeBytes)
	}
	if c.GisPushCadenceMs <= 0 {
		return fmt.Errorf("config: gis_push_cadence_ms must be > 0 (got %d)", c.GisPushCadenceMs)
	}
	if c.GisMaxMessageSizeBytes <= 0 {
		return fmt.Errorf("config: gis_max_message_size_bytes must be > 0 (got %d)", c.GisMaxMessageSizeBytes)
	}
	if c.RestRequestLimitPerSecond <= 0 {
		return fmt.Errorf("config: rest_request_limit_per_second must be > 0 (got %d)", c.RestRequestLimitPerSecond)
	}
	if c.RestConcurrencyLimitPerService <= 0 {
		return fmt.Errorf("config: rest_concurrency_limit_per_service must be > 0 (got %d)", c.RestConcurrencyLimitPerService)
	}
	if c.RestCorsAllowedOrigin == "" {
		return fmt.Errorf("config: rest_cors_allowed_origin is required")
	}
	return nil
}

// StorageAddr is the archive service's gRPC address.
func (c *Config) StorageAddr() string {
	return fmt.Sprintf("%s:%d", c.StorageHostGRPC, c.StoragePortGRPC)
}

// GisAddr is the spatial service's gRPC address.
func (c *Config) GisAddr() string {
	return fmt.Sprintf("%s:%d", c.GisHostGRPC, c.GisPortGRPC)
}

// GisPushCadence is the batcher tick interval.
func (c *Config) GisPushCadence() time.Duration {
	return time.Duration(c.GisPushCadenceMs) * time.Millisecond
}
