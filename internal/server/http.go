package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/snapsync/snapsync/internal/core/observability/log"
)

// Handler returns the HTTP surface: WebSocket ingest plus read-side query
// endpoints. Exported so tests and embedding hosts can mount it without a
// listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/entities", s.handleEntities)
	mux.HandleFunc("/delay", s.handleDelay)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// handleState serves GET /state?entity=ID[&t=ms]: the interpolated state
// for one entity, at an explicit render time when t is given, otherwise
// at now-minus-delay. Unknown entities are 404, not errors.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entityID := r.URL.Query().Get("entity")
	if entityID == "" {
		http.Error(w, "missing entity parameter", http.StatusBadRequest)
		return
	}

	var (
		state any
		found bool
	)
	if raw := r.URL.Query().Get("t"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid t parameter", http.StatusBadRequest)
			return
		}
		state, found = s.engine.InterpolatedStateAt(entityID, t)
	} else {
		state, found = s.engine.InterpolatedState(entityID)
	}

	if !found {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, state)
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ids := s.engine.Entities()
	s.writeJSON(w, map[string]any{
		"entities": ids,
		"count":    len(ids),
	})
}

// handleDelay reads (GET) or retunes (PUT/POST) the render delay without
// resetting buffered snapshots.
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, map[string]float64{"delay_ms": s.engine.Delay()})
	case http.MethodPut, http.MethodPost:
		var body struct {
			DelayMs float64 `json:"delay_ms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if body.DelayMs < 0 {
			http.Error(w, "delay_ms must be >= 0", http.StatusBadRequest)
			return
		}
		s.engine.SetDelay(body.DelayMs)
		if s.logger != nil {
			s.logger.Info("render delay changed", log.Float64("delay_ms", body.DelayMs))
		}
		s.writeJSON(w, map[string]float64{"delay_ms": s.engine.Delay()})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Error("response encode failed", log.Error(err))
	}
}
