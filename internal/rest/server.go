// Package rest is the HTTP surface of the ingest tier: the telemetry
// submission endpoints, the login endpoint, and the health and metrics
// routes.
package rest

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flightmesh/telemetry-ingest/internal/auth"
	"github.com/flightmesh/telemetry-ingest/internal/gis"
	"github.com/flightmesh/telemetry-ingest/internal/ring"
	"github.com/flightmesh/telemetry-ingest/internal/storage"
)

// Dedup windows and the CPR pairing window.
const (
	CacheExpireADSB    = 10 * time.Second
	CacheExpireNetrid  = 10 * time.Second
	CacheExpireMavlink = 5 * time.Second
	CacheExpireCPR     = time.Second

	// MavlinkMaxSizeBytes is the MAVLink v2 maximum packet length.
	MavlinkMaxSizeBytes = 280

	// NReportersNeeded is how many unique reporters must submit a packet
	// before it is processed.
	NReportersNeeded = 1
)

// Cache is the slice of the Redis pool the handlers need.
type Cache interface {
	Increment(ctx context.Context, key string, expiration time.Duration) (uint32, error)
	MultipleSet(ctx context.Context, pairs map[string]string, expiration time.Duration) error
	MultipleGet(ctx context.Context, keys []string) ([]string, error)
	PushQueue(ctx context.Context, queueKey string, record any) error
}

// Publisher fans payloads out to the broker.
type Publisher interface {
	Publish(routingKey, contentType string, payload []byte) error
}

// ReadyChecker probes a downstream dependency.
type ReadyChecker interface {
	IsReady(ctx context.Context) bool
}

// Archive persists raw frames.
type Archive interface {
	InsertADSB(ctx context.Context, req *storage.InsertADSBRequest) error
	IsReady(ctx context.Context) bool
}

// Tokens mints bearer tokens and gates the Remote-ID endpoint.
type Tokens interface {
	Mint(identifier string) (string, error)
	Middleware(next http.Handler) http.Handler
}

// Rings groups the three egress buffers the handlers produce into.
type Rings struct {
	ID       *ring.Ring[gis.AircraftID]
	Position *ring.Ring[gis.AircraftPosition]
	Velocity *ring.Ring[gis.AircraftVelocity]
}

// Options wires the server's collaborators and edge limits.
type Options struct {
	ADSBCache    Cache
	NetridCache  Cache
	MavlinkCache Cache
	Publisher    Publisher
	Gis          ReadyChecker
	Archive      Archive
	Tokens       Tokens
	Rings        Rings

	RequestsPerSecond int
	ConcurrencyLimit  int
	CORSAllowedOrigin string

	Logger *zap.Logger
}

type Server struct {
	srv *http.Server

	adsbCache    Cache
	netridCache  Cache
	mavlinkCache Cache
	publisher    Publisher
	gis          ReadyChecker
	archive      Archive
	tokens       Tokens
	rings        Rings

	logger *zap.Logger
}

// NewServer builds the router. The Remote-ID endpoint sits behind the token
// middleware; ADS-B reporters are trusted infrastructure and submit openly.
func NewServer(addr string, opts Options) *Server {
	s := &Server{
		adsbCache:    opts.ADSBCache,
		netridCache:  opts.NetridCache,
		mavlinkCache: opts.MavlinkCache,
		publisher:    opts.Publisher,
		gis:          opts.Gis,
		archive:      opts.Archive,
		tokens:       opts.Tokens,
		rings:        opts.Rings,
		logger:       opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{opts.CORSAllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))
	r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestsPerSecond)))
	r.Use(middleware.Throttle(opts.ConcurrencyLimit))

	r.Get("/health", s.handleHealth)
	r.Get("/telemetry/login", s.handleLogin)
	r.Post("/telemetry/adsb", s.handleADSB)
	r.Post("/telemetry/mavlink/adsb", s.handleMavlink)
	r.With(opts.Tokens.Middleware).Post("/telemetry/netrid", s.handleNetrid)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// rateLimit trips a 429 when the edge token bucket is exhausted.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"storage": "ok", "gis": "ok"}
	ok := true
	if s.archive == nil || !s.archive.IsReady(ctx) {
		checks["storage"] = "unreachable"
		ok = false
	}
	if s.gis == nil || !s.gis.IsReady(ctx) {
		checks["gis"] = "unreachable"
		ok = false
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, checks)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read body", http.StatusInternalServerError)
		return
	}

	token, err := s.tokens.Mint(string(body))
	if err != nil {
		if err == auth.ErrEmptyIdentifier {
			http.Error(w, "identifier cannot be empty", http.StatusBadRequest)
			return
		}
		s.logger.Error("could not mint token", zap.Error(err))
		http.Error(w, "could not mint token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
