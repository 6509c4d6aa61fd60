package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dm/fleetmon-go/internal/engine"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()
	state := s.source.State()

	resp := HealthResponse{
		Status:    "ok",
		State:     state.String(),
		Loaded:    snap.Loaded,
		Cycle:     snap.Cycle,
		FetchedAt: snap.FetchedAt,
	}
	if state == engine.StateStopped {
		resp.Status = "stopped"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, toSnapshotResponse(s.source.Snapshot()))
}

func (s *Server) handleAggregate(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()
	writeJSON(w, toAggregateResponse(snap, engine.CalcAggregate(snap)))
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	rows := engine.CalcDeviceRows(s.source.Snapshot())
	out := make([]DeviceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDeviceResponse(r))
	}
	writeJSON(w, out)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, "Invalid device id", http.StatusBadRequest)
		return
	}
	for _, row := range engine.CalcDeviceRows(s.source.Snapshot()) {
		if row.ID == id {
			writeJSON(w, toDeviceResponse(row))
			return
		}
	}
	writeError(w, "Device not found", http.StatusNotFound)
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()
	alerts := engine.CalcAlerts(snap, engine.CalcAggregate(snap), s.thresholds, s.now())
	writeJSON(w, toAlertResponses(alerts))
}
