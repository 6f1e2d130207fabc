package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"unsafe"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/flightmesh/telemetry-ingest/internal/amqp"
	"github.com/flightmesh/telemetry-ingest/internal/auth"
	"github.com/flightmesh/telemetry-ingest/internal/cache"
	"github.com/flightmesh/telemetry-ingest/internal/config"
	"github.com/flightmesh/telemetry-ingest/internal/gis"
	"github.com/flightmesh/telemetry-ingest/internal/metrics"
	"github.com/flightmesh/telemetry-ingest/internal/rest"
	"github.com/flightmesh/telemetry-ingest/internal/ring"
	"github.com/flightmesh/telemetry-ingest/internal/storage"
)

func main() {
	configPath, logLevelOverride := parseFlags(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogConfig, logLevelOverride)
	defer logger.Sync()

	run(cfg, logger)
}

func parseFlags(args []string) (configPath string, logLevel string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				logLevel = args[i+1]
				i++
			}
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		}
	}
	return
}

func printUsage() {
	fmt.Println("Usage: telemetry-ingest [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
}

// initLogger builds the zap logger, preferring a full zap config file when
// one is configured. A --log-level override beats both.
func initLogger(logConfigPath, levelOverride string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if logConfigPath != "" {
		loaded, err := loadLogConfig(logConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading log config: %v\n", err)
			os.Exit(1)
		}
		zapCfg = *loaded
	}

	if levelOverride != "" {
		var zapLevel zapcore.Level
		switch levelOverride {
		case "debug":
			zapLevel = zap.DebugLevel
		case "warn":
			zapLevel = zap.WarnLevel
		case "error":
			zapLevel = zap.ErrorLevel
		default:
			zapLevel = zap.InfoLevel
		}
		zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadLogConfig reads a YAML zap config. zap only unmarshals itself from
// JSON, so the YAML tree is re-marshalled through JSON on the way in.
func loadLogConfig(path string) (*zap.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := koanfyaml.Parser().Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	jsonBytes, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	zapCfg := zap.NewProductionConfig()
	if err := json.Unmarshal(jsonBytes, &zapCfg); err != nil {
		return nil, fmt.Errorf("apply %s: %w", path, err)
	}
	return &zapCfg, nil
}

func run(cfg *config.Config, logger *zap.Logger) {
	metrics.Register()

	logger.Info("starting telemetry-ingest",
		zap.Int("rest_port", cfg.DockerPortREST),
		zap.Int("grpc_port", cfg.DockerPortGRPC),
		zap.String("gis", cfg.GisAddr()),
		zap.String("storage", cfg.StorageAddr()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Redis ---
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("invalid redis url", zap.Error(err))
	}
	redisOpts.PoolSize = cfg.Redis.Pool.MaxSize
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	adsbCache, err := cache.NewPool(rdb, "tlm:adsb", logger.Named("cache.adsb"))
	if err != nil {
		logger.Fatal("failed to create adsb cache pool", zap.Error(err))
	}
	netridCache, err := cache.NewPool(rdb, "tlm:netrid", logger.Named("cache.netrid"))
	if err != nil {
		logger.Fatal("failed to create netrid cache pool", zap.Error(err))
	}
	mavlinkCache, err := cache.NewPool(rdb, "tlm:mav", logger.Named("cache.mavlink"))
	if err != nil {
		logger.Fatal("failed to create mavlink cache pool", zap.Error(err))
	}

	// --- Broker ---
	// The broker is a best-effort fanout; the service still ingests
	// without it.
	publisher, err := amqp.Dial(cfg.AMQP.URL, logger.Named("amqp"))
	if err != nil {
		logger.Warn("broker unavailable, publishing disabled", zap.Error(err))
		publisher = amqp.Disabled(logger.Named("amqp"))
	}
	defer publisher.Close()

	// --- Downstream gRPC clients ---
	gisClient := gis.NewClient(cfg.GisAddr(), logger.Named("gis"))
	storageClient := storage.NewClient(cfg.StorageAddr(), logger.Named("storage"))

	// --- Egress rings and batchers ---
	// Ring capacity and batch budget are configured in bytes and divided
	// down by record size.
	idRing := ring.New[gis.AircraftID](cfg.RingbufferSizeBytes / int(unsafe.Sizeof(gis.AircraftID{})))
	positionRing := ring.New[gis.AircraftPosition](cfg.RingbufferSizeBytes / int(unsafe.Sizeof(gis.AircraftPosition{})))
	velocityRing := ring.New[gis.AircraftVelocity](cfg.RingbufferSizeBytes / int(unsafe.Sizeof(gis.AircraftVelocity{})))

	cadence := cfg.GisPushCadence()
	idBatcher := gis.NewBatcher("id", idRing, cadence,
		cfg.GisMaxMessageSizeBytes/int(unsafe.Sizeof(gis.AircraftID{})),
		gisClient.UpdateAircraftIDs, gisClient.Invalidate, logger)
	positionBatcher := gis.NewBatcher("position", positionRing, cadence,
		cfg.GisMaxMessageSizeBytes/int(unsafe.Sizeof(gis.AircraftPosition{})),
		gisClient.UpdateAircraftPositions, gisClient.Invalidate, logger)
	velocityBatcher := gis.NewBatcher("velocity", velocityRing, cadence,
		cfg.GisMaxMessageSizeBytes/int(unsafe.Sizeof(gis.AircraftVelocity{})),
		gisClient.UpdateAircraftVelocities, gisClient.Invalidate, logger)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); idBatcher.Run(ctx) }()
	go func() { defer wg.Done(); positionBatcher.Run(ctx) }()
	go func() { defer wg.Done(); velocityBatcher.Run(ctx) }()

	// --- Token service ---
	tokens, err := auth.NewService(logger.Named("auth"))
	if err != nil {
		logger.Fatal("failed to create token service", zap.Error(err))
	}

	// --- gRPC health endpoint ---
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	grpcLn, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.DockerPortGRPC))
	if err != nil {
		logger.Fatal("failed to listen on grpc port", zap.Error(err))
	}
	go func() {
		if err := grpcServer.Serve(grpcLn); err != nil {
			logger.Error("grpc server error", zap.Error(err))
		}
	}()

	// --- HTTP server ---
	httpServer := rest.NewServer(fmt.Sprintf(":%d", cfg.DockerPortREST), rest.Options{
		ADSBCache:    adsbCache,
		NetridCache:  netridCache,
		MavlinkCache: mavlinkCache,
		Publisher:    publisher,
		Gis:          gisClient,
		Archive:      storageClient,
		Tokens:       tokens,
		Rings: rest.Rings{
			ID:       idRing,
			Position: positionRing,
			Velocity: velocityRing,
		},
		RequestsPerSecond: cfg.RestRequestLimitPerSecond,
		ConcurrencyLimit:  cfg.RestConcurrencyLimitPerService,
		CORSAllowedOrigin: cfg.RestCorsAllowedOrigin,
		Logger:            logger.Named("rest"),
	})
	if err := httpServer.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	logger.Info("telemetry-ingest started")

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting traffic first, then drain the batchers.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("batchers stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, batchers may not have drained")
	}

	logger.Info("telemetry-ingest stopped")
}
