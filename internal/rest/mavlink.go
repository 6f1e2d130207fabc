package rest

import (
	"encoding/hex"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/flightmesh/telemetry-ingest/internal/metrics"
)

// handleMavlink ingests one MAVLink ADS-B packet. Packets are variable
// length up to the v2 maximum; this tier only counts unique reporters and
// acks, no decoding happens here yet.
func (s *Server) handleMavlink(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read body", http.StatusInternalServerError)
		return
	}
	if len(payload) == 0 || len(payload) > MavlinkMaxSizeBytes {
		metrics.IngestTotal.WithLabelValues("mavlink", "malformed").Inc()
		http.Error(w, "packet must be 1 to 280 bytes", http.StatusBadRequest)
		return
	}

	count, err := s.mavlinkCache.Increment(r.Context(), hex.EncodeToString(payload), CacheExpireMavlink)
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
		metrics.DedupHitsTotal.WithLabelValues("mavlink").Inc()
		writeJSON(w, http.StatusOK, count)
		return
	}

	metrics.IngestTotal.WithLabelValues("mavlink", "accepted").Inc()
	writeJSON(w, http.StatusOK, count)
}
