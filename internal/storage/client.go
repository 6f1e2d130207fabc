// Package storage holds the client for the raw-frame archive service.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/flightmesh/telemetry-ingest/internal/rpcjson"
)

const methodInsertADSB = "/storage.AdsbService/Insert"

// InsertADSBRequest archives one raw extended squitter with its routing
// metadata.
type InsertADSBRequest struct {
	IcaoAddress      int64     `json:"icao_address"`
	MessageType      int64     `json:"message_type"`
	NetworkTimestamp time.Time `json:"network_timestamp"`
	Payload          []byte    `json:"payload"`
}

// InsertResponse acknowledges an archive write.
type InsertResponse struct {
	ID string `json:"id"`
}

// Client is a shared handle on the archive service.
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
		return nil, fmt.Errorf("storage: dial %s: %w", c.target, err)
	}
	c.conn = conn
	return conn, nil
}

// InsertADSB archives a raw frame. Failures do not fail the ingest request;
// the caller logs and moves on.
func (c *Client) InsertADSB(ctx context.Context, req *InsertADSBRequest) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	var resp InsertResponse
	if err := conn.Invoke(ctx, methodInsertADSB, req, &resp, grpc.CallContentSubtype(rpcjson.Name)); err != nil {
		return fmt.Errorf("storage: insert adsb: %w", err)
	}
	return nil
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
