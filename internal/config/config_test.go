package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DockerPortGRPC:  50051,
		DockerPortREST:  8000,
		StorageHostGRPC: "svc-storage",
		StoragePortGRPC: 50051,
		GisHostGRPC:     "svc-gis",
		GisPortGRPC:     50051,
		AMQP: AMQPConfig{
			URL:  "amqp://localhost:5672",
			Pool: PoolConfig{MaxSize: 16},
		},
		Redis: RedisConfig{
			URL:  "redis://localhost:6379",
			Pool: PoolConfig{MaxSize: 16},
		},
		RingbufferSizeBytes:            4096,
		GisPushCadenceMs:               50,
		GisMaxMessageSizeBytes:         2048,
		RestRequestLimitPerSecond:      2,
		RestConcurrencyLimitPerService: 5,
		RestCorsAllowedOrigin:          "http://localhost:3000",
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_NoRedisURL(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty redis.url")
	}
}

func TestValidate_BadGRPCPort(t *testing.T) {
	cfg := validConfig()
	cfg.DockerPortGRPC = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for docker_port_grpc = 0")
	}
	cfg = validConfig()
	cfg.DockerPortGRPC = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for docker_port_grpc = 70000")
	}
}

func TestValidate_NoGisHost(t *testing.T) {
	cfg := validConfig()
	cfg.GisHostGRPC = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty gis_host_grpc")
	}
}

func TestValidate_RingbufferZero(t *testing.T) {
	cfg := validConfig()
	cfg.RingbufferSizeBytes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ringbuffer_size_bytes = 0")
	}
}

func TestValidate_CadenceZero(t *testing.T) {
	cfg := validConfig()
	cfg.GisPushCadenceMs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for gis_push_cadence_ms = 0")
	}
}

func TestValidate_MaxMessageZero(t *testing.T) {
	cfg := validConfig()
	cfg.GisMaxMessageSizeBytes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for gis_max_message_size_bytes = 0")
	}
}

func TestValidate_RateLimitZero(t *testing.T) {
	cfg := validConfig()
	cfg.RestRequestLimitPerSecond = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for rest_request_limit_per_second = 0")
	}
}

func TestValidate_ConcurrencyZero(t *testing.T) {
	cfg := validConfig()
	cfg.RestConcurrencyLimitPerService = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for rest_concurrency_limit_per_service = 0")
	}
}

func TestValidate_PoolSizeZero(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Pool.MaxSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis.pool.max_size = 0")
	}
}

func writeMinimalYAML(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	data := `
redis:
  url: "redis://localhost:6379"
amqp:
  url: "amqp://localhost:5672"
`
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeMinimalYAML(t)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DockerPortREST != 8000 {
		t.Errorf("docker_port_rest = %d, want 8000", cfg.DockerPortREST)
	}
	if cfg.RingbufferSizeBytes != 4096 {
		t.Errorf("ringbuffer_size_bytes = %d, want 4096", cfg.RingbufferSizeBytes)
	}
	if cfg.GisPushCadenceMs != 50 {
		t.Errorf("gis_push_cadence_ms = %d, want 50", cfg.GisPushCadenceMs)
	}
	if cfg.GisMaxMessageSizeBytes != 2048 {
		t.Errorf("gis_max_message_size_bytes = %d, want 2048", cfg.GisMaxMessageSizeBytes)
	}
	if cfg.RestCorsAllowedOrigin != "http://localhost:3000" {
		t.Errorf("rest_cors_allowed_origin = %q, want http://localhost:3000", cfg.RestCorsAllowedOrigin)
	}
}

func TestLoad_EnvOverrideRedisURL(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("REDIS__URL", "redis://envhost:6379")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.URL != "redis://envhost:6379" {
		t.Errorf("expected redis url from env, got %q", cfg.Redis.URL)
	}
}

func TestLoad_EnvOverrideCadence(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("GIS_PUSH_CADENCE_MS", "100")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GisPushCadenceMs != 100 {
		t.Errorf("gis_push_cadence_ms = %d, want 100 from env", cfg.GisPushCadenceMs)
	}
}

func TestLoad_EnvEmptyRedisURLFailsValidation(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error for missing redis.url")
	}
}
