package rest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/flightmesh/telemetry-ingest/internal/adsb"
	"github.com/flightmesh/telemetry-ingest/internal/amqp"
	"github.com/flightmesh/telemetry-ingest/internal/cache"
	"github.com/flightmesh/telemetry-ingest/internal/gis"
	"github.com/flightmesh/telemetry-ingest/internal/metrics"
	"github.com/flightmesh/telemetry-ingest/internal/storage"
)

// handleADSB ingests one raw extended squitter: dedup, decode, enqueue for
// the spatial service, and fan out the raw frame to the broker and archive.
func (s *Server) handleADSB(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read body", http.StatusInternalServerError)
		return
	}
	if len(payload) != adsb.FrameSizeBytes {
		metrics.IngestTotal.WithLabelValues("adsb", "malformed").Inc()
		http.Error(w, "frame must be 14 bytes", http.StatusBadRequest)
		return
	}

	count, err := s.adsbCache.Increment(ctx, hex.EncodeToString(payload), CacheExpireADSB)
	if err != nil {
		s.logger.Error("dedup increment failed", zap.Error(err))
		http.Error(w, "cache failure", http.StatusInternalServerError)
		return
	}
	switch {
	case count < NReportersNeeded:
		s.logger.Error("reporter count below threshold should be impossible", zap.Uint32("count", count))
		http.Error(w, "unexpected reporter count", http.StatusInternalServerError)
		return
	case count > NReportersNeeded:
		metrics.DedupHitsTotal.WithLabelValues("adsb").Inc()
		writeJSON(w, http.StatusOK, count)
		return
	}

	frame, err := adsb.Decode(payload)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("adsb", "frame").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	switch {
	case frame.Identification != nil:
		s.processADSBIdentification(ctx, frame, now)
	case frame.Position != nil:
		if status, err := s.processADSBPosition(ctx, frame, now); err != nil {
			metrics.IngestTotal.WithLabelValues("adsb", "rejected").Inc()
			http.Error(w, err.Error(), status)
			return
		}
	case frame.Velocity != nil:
		if err := s.processADSBVelocity(ctx, frame, now); err != nil {
			metrics.ParseErrorsTotal.WithLabelValues("adsb", "velocity").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// Raw-frame fan-out. Failures are logged; the reporter still gets an ack.
	if err := s.publisher.Publish(amqp.RoutingKeyADSB, "application/octet-stream", payload); err != nil {
		metrics.BrokerPublishFailuresTotal.WithLabelValues(amqp.RoutingKeyADSB).Inc()
		s.logger.Warn("broker publish failed", zap.Error(err))
	}
	if err := s.archive.InsertADSB(ctx, &storage.InsertADSBRequest{
		IcaoAddress:      int64(frame.ICAO),
		MessageType:      int64(frame.TypeCode),
		NetworkTimestamp: now,
		Payload:          payload,
	}); err != nil {
		metrics.StorageInsertFailuresTotal.Inc()
		s.logger.Warn("archive insert failed", zap.Error(err))
	}

	metrics.IngestTotal.WithLabelValues("adsb", "accepted").Inc()
	writeJSON(w, http.StatusOK, count)
}

func (s *Server) processADSBIdentification(ctx context.Context, frame *adsb.Frame, now time.Time) {
	record := gis.AircraftID{
		Identifier:       frame.ICAOHex(),
		AircraftType:     adsb.AircraftTypeFromIdentification(frame.Identification.TypeCoding, frame.Identification.Category),
		TimestampNetwork: now,
	}
	if !s.rings.ID.TryPush(record) {
		metrics.RingDropsTotal.WithLabelValues("id").Inc()
		s.logger.Warn("id ring full or contended, record dropped")
	}
	if err := s.adsbCache.PushQueue(ctx, cache.QueueKeyAircraftID, record); err != nil {
		s.logger.Warn("queue push failed", zap.Error(err))
	}
}

// processADSBPosition caches this frame's CPR halves, then tries to pair
// them with the opposite parity. An incomplete pair is not an error; the
// position is emitted on whichever submission completes the pair.
func (s *Server) processADSBPosition(ctx context.Context, frame *adsb.Frame, now time.Time) (int, error) {
	pos := frame.Position
	icao := frame.ICAOHex()

	pairs := map[string]string{
		fmt.Sprintf("%s:lat_cpr:%d", icao, pos.OddFlag): strconv.FormatUint(uint64(pos.LatitudeCPR), 10),
		fmt.Sprintf("%s:lon_cpr:%d", icao, pos.OddFlag): strconv.FormatUint(uint64(pos.LongitudeCPR), 10),
	}
	if err := s.adsbCache.MultipleSet(ctx, pairs, CacheExpireCPR); err != nil {
		s.logger.Error("could not cache cpr halves", zap.Error(err))
		return http.StatusInternalServerError, fmt.Errorf("cache failure")
	}

	opposite := 1 - pos.OddFlag
	values, err := s.adsbCache.MultipleGet(ctx, []string{
		fmt.Sprintf("%s:lat_cpr:%d", icao, opposite),
		fmt.Sprintf("%s:lon_cpr:%d", icao, opposite),
	})
	if errors.Is(err, cache.ErrNotFound) {
		// Waiting on the other half.
		return 0, nil
	}
	if err != nil {
		s.logger.Error("could not read cpr halves", zap.Error(err))
		return http.StatusInternalServerError, fmt.Errorf("cache failure")
	}

	otherLat, err1 := strconv.ParseUint(values[0], 10, 32)
	otherLon, err2 := strconv.ParseUint(values[1], 10, 32)
	if err1 != nil || err2 != nil {
		s.logger.Error("corrupt cpr half in cache", zap.Strings("values", values))
		return http.StatusInternalServerError, fmt.Errorf("cache failure")
	}

	latE, lonE := pos.LatitudeCPR, pos.LongitudeCPR
	latO, lonO := uint32(otherLat), uint32(otherLon)
	if pos.OddFlag == 1 {
		latE, lonE = uint32(otherLat), uint32(otherLon)
		latO, lonO = pos.LatitudeCPR, pos.LongitudeCPR
	}

	latitude, longitude, err := adsb.DecodeCPR(latE, lonE, latO, lonO)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("adsb", "cpr").Inc()
		return http.StatusBadRequest, err
	}

	record := gis.AircraftPosition{
		Identifier: icao,
		Position: gis.PointZ{
			Latitude:       latitude,
			Longitude:      longitude,
			AltitudeMeters: adsb.DecodeAltitude(pos.Altitude),
		},
		TimestampNetwork: now,
	}
	if !s.rings.Position.TryPush(record) {
		metrics.RingDropsTotal.WithLabelValues("position").Inc()
		s.logger.Warn("position ring full or contended, record dropped")
	}
	if err := s.adsbCache.PushQueue(ctx, cache.QueueKeyAircraftPosition, record); err != nil {
		s.logger.Warn("queue push failed", zap.Error(err))
	}
	return 0, nil
}

func (s *Server) processADSBVelocity(ctx context.Context, frame *adsb.Frame, now time.Time) error {
	speed, track, err := adsb.DecodeSpeedDirection(frame.Velocity)
	if err != nil {
		return err
	}

	record := gis.AircraftVelocity{
		Identifier:                  frame.ICAOHex(),
		VelocityHorizontalGroundMps: speed,
		VelocityVerticalMps:         adsb.DecodeVerticalSpeed(frame.Velocity),
		TrackAngleDegrees:           track,
		TimestampNetwork:            now,
	}
	if !s.rings.Velocity.TryPush(record) {
		metrics.RingDropsTotal.WithLabelValues("velocity").Inc()
		s.logger.Warn("velocity ring full or contended, record dropped")
	}
	if err := s.adsbCache.PushQueue(ctx, cache.QueueKeyAircraftVelocity, record); err != nil {
		s.logger.Warn("queue push failed", zap.Error(err))
	}
	return nil
}
