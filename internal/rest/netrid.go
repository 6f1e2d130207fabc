package rest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flightmesh/telemetry-ingest/internal/amqp"
	"github.com/flightmesh/telemetry-ingest/internal/auth"
	"github.com/flightmesh/telemetry-ingest/internal/cache"
	"github.com/flightmesh/telemetry-ingest/internal/gis"
	"github.com/flightmesh/telemetry-ingest/internal/metrics"
	"github.com/flightmesh/telemetry-ingest/internal/netrid"
)

// handleNetrid ingests one Remote-ID frame from an authenticated reporter.
// Basic messages are identification data, stable for the whole flight; they
// still pass through the counter so the ack carries a reporter count, but
// the count never gates them.
func (s *Server) handleNetrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read body", http.StatusInternalServerError)
		return
	}
	if len(payload) != netrid.FrameSizeBytes {
		metrics.IngestTotal.WithLabelValues("netrid", "malformed").Inc()
		http.Error(w, "frame must be 25 bytes", http.StatusBadRequest)
		return
	}

	count, err := s.netridCache.Increment(ctx, hex.EncodeToString(payload), CacheExpireNetrid)
	if err != nil {
		s.logger.Error("dedup increment failed", zap.Error(err))
		http.Error(w, "cache failure", http.StatusInternalServerError)
		return
	}
	if count < NReportersNeeded {
		s.logger.Error("reporter count below threshold should be impossible", zap.Uint32("count", count))
		http.Error(w, "unexpected reporter count", http.StatusInternalServerError)
		return
	}
	messageType := netrid.MessageType(payload[0] >> 4)
	if count > NReportersNeeded && messageType != netrid.MessageTypeBasic {
		metrics.DedupHitsTotal.WithLabelValues("netrid").Inc()
		writeJSON(w, http.StatusOK, count)
		return
	}

	frame, err := netrid.DecodeFrame(payload)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("netrid", "frame").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claim, _ := auth.Subject(ctx)
	now := time.Now().UTC()

	switch frame.Header.MessageType {
	case netrid.MessageTypeBasic:
		msg, err := netrid.DecodeBasic(frame.Message)
		if err != nil {
			metrics.ParseErrorsTotal.WithLabelValues("netrid", "basic").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.processNetridBasic(ctx, msg, claim, now)
	case netrid.MessageTypeLocation:
		msg, err := netrid.DecodeLocation(frame.Message)
		if err != nil {
			metrics.ParseErrorsTotal.WithLabelValues("netrid", "location").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.processNetridLocation(ctx, msg, claim, now); err != nil {
			metrics.ParseErrorsTotal.WithLabelValues("netrid", "location").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	default:
		metrics.IngestTotal.WithLabelValues("netrid", "unsupported").Inc()
		http.Error(w, "unsupported message type", http.StatusBadRequest)
		return
	}

	metrics.IngestTotal.WithLabelValues("netrid", "accepted").Inc()
	writeJSON(w, http.StatusOK, count)
}

func (s *Server) processNetridBasic(ctx context.Context, msg *netrid.BasicMessage, claim string, now time.Time) {
	// The frame's own id wins; an empty one falls back to the token subject.
	identifier := msg.Identifier()
	if identifier == "" {
		identifier = claim
	}

	record := gis.AircraftID{
		AircraftType:     msg.UAType.AircraftType(),
		TimestampNetwork: now,
	}
	if msg.IDType.SessionScoped() {
		record.SessionID = identifier
	} else {
		record.Identifier = identifier
	}

	if !s.rings.ID.TryPush(record) {
		metrics.RingDropsTotal.WithLabelValues("id").Inc()
		s.logger.Warn("id ring full or contended, record dropped")
	}
	if err := s.netridCache.PushQueue(ctx, cache.QueueKeyAircraftID, record); err != nil {
		s.logger.Warn("queue push failed", zap.Error(err))
	}
	s.publishNetrid(amqp.RoutingKeyNetridID, record)
}

func (s *Server) processNetridLocation(ctx context.Context, msg *netrid.LocationMessage, claim string, now time.Time) error {
	altitude, err := msg.DecodeAltitude()
	if err != nil {
		return err
	}
	speed, err := msg.DecodeSpeed()
	if err != nil {
		return err
	}
	verticalSpeed, err := msg.DecodeVerticalSpeed()
	if err != nil {
		return err
	}

	assetTime := msg.DecodeTimestamp(now)

	position := gis.AircraftPosition{
		Identifier: claim,
		Position: gis.PointZ{
			Latitude:       msg.DecodeLatitude(),
			Longitude:      msg.DecodeLongitude(),
			AltitudeMeters: float64(altitude),
		},
		TimestampNetwork: now,
		TimestampAsset:   &assetTime,
	}
	velocity := gis.AircraftVelocity{
		Identifier:                  claim,
		VelocityHorizontalGroundMps: speed,
		VelocityVerticalMps:         verticalSpeed,
		TrackAngleDegrees:           float32(msg.DecodeDirection()),
		TimestampNetwork:            now,
		TimestampAsset:              &assetTime,
	}

	if !s.rings.Position.TryPush(position) {
		metrics.RingDropsTotal.WithLabelValues("position").Inc()
		s.logger.Warn("position ring full or contended, record dropped")
	}
	if !s.rings.Velocity.TryPush(velocity) {
		metrics.RingDropsTotal.WithLabelValues("velocity").Inc()
		s.logger.Warn("velocity ring full or contended, record dropped")
	}

	if err := s.netridCache.PushQueue(ctx, cache.QueueKeyAircraftPosition, position); err != nil {
		s.logger.Warn("queue push failed", zap.Error(err))
	}
	if err := s.netridCache.PushQueue(ctx, cache.QueueKeyAircraftVelocity, velocity); err != nil {
		s.logger.Warn("queue push failed", zap.Error(err))
	}
	s.publishNetrid(amqp.RoutingKeyNetridPosition, position)
	s.publishNetrid(amqp.RoutingKeyNetridVelocity, velocity)
	return nil
}

// publishNetrid serialises a decoded record and publishes it to the broker.
func (s *Server) publishNetrid(routingKey string, record any) {
	serialized, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("could not serialize record", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(routingKey, "application/json", serialized); err != nil {
		metrics.BrokerPublishFailuresTotal.WithLabelValues(routingKey).Inc()
		s.logger.Warn("broker publish failed", zap.Error(err))
	}
}
