package gis

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/flightmesh/telemetry-ingest/internal/rpcjson"
)

// RPC method names on the spatial service.
const (
	methodUpdateAircraftID       = "/gis.GisService/UpdateAircraftId"
	methodUpdateAircraftPosition = "/gis.GisService/UpdateAircraftPosition"
	methodUpdateAircraftVelocity = "/gis.GisService/UpdateAircraftVelocity"
)

// UpdateAircraftIDRequest is the id-batch payload.
type UpdateAircraftIDRequest struct {
	Aircraft []AircraftID `json:"aircraft"`
}

// UpdateAircraftPositionRequest is the position-batch payload.
type UpdateAircraftPositionRequest struct {
	Aircraft []AircraftPosition `json:"aircraft"`
}

// UpdateAircraftVelocityRequest is the velocity-batch payload.
type UpdateAircraftVelocityRequest struct {
	Aircraft []AircraftVelocity `json:"aircraft"`
}

// UpdateResponse acknowledges a batch.
type UpdateResponse struct {
	Updated int32 `json:"updated"`
}

// Client is a shared handle on the spatial service. Invalidate tears the
// connection down; the next call dials fresh. Safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	conn   *grpc.ClientConn
	target string
	logger *zap.Logger
}

// NewClient prepares a client for the target address. No connection is
// opened until the first call.
func NewClient(target string, logger *zap.Logger) *Client {
	return &Client{target: target, logger: logger}
}

func (c *Client) connection() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := grpc.NewClient(c.target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("gis: dial %s: %w", c.target, err)
	}
	c.conn = conn
	return conn, nil
}

// Invalidate drops the connection so the next call redials. Called by the
// batcher after a failed push.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.logger.Warn("invalidating spatial-service connection", zap.String("target", c.target))
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) invoke(ctx context.Context, method string, req any) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	var resp UpdateResponse
	if err := conn.Invoke(ctx, method, req, &resp, grpc.CallContentSubtype(rpcjson.Name)); err != nil {
		return fmt.Errorf("gis: %s: %w", method, err)
	}
	return nil
}

// UpdateAircraftIDs ships a batch of identity records.
func (c *Client) UpdateAircraftIDs(ctx context.Context, batch []AircraftID) error {
	return c.invoke(ctx, methodUpdateAircraftID, &UpdateAircraftIDRequest{Aircraft: batch})
}

// UpdateAircraftPositions ships a batch of position records.
func (c *Client) UpdateAircraftPositions(ctx context.Context, batch []AircraftPosition) error {
	return c.invoke(ctx, methodUpdateAircraftPosition, &UpdateAircraftPositionRequest{Aircraft: batch})
}

// UpdateAircraftVelocities ships a batch of velocity records.
func (c *Client) UpdateAircraftVelocities(ctx context.Context, batch []AircraftVelocity) error {
	return c.invoke(ctx, methodUpdateAircraftVelocity, &UpdateAircraftVelocityRequest{Aircraft: batch})
}

// IsReady probes the peer's standard health service.
func (c *Client) IsReady(ctx context.Context) bool {
	conn, err := c.connection()
	if err != nil {
		return false
	}
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false
	}
	return resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
}
