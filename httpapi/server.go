// Package httpapi exposes a small status/control HTTP surface over a
// client.Piper, adapted from the teacher's CiA-309-5 gateway server
// (pkg/http/server.go): a stdlib net/http.ServeMux, a response writer
// that tracks whether a handler already wrote a response, and a
// route table of narrow handlers. The CANopen SDO/PDO/NMT semantics the
// teacher's gateway exposed have no counterpart in the arm's raw-frame
// protocol, so the routes here are domain-specific (snapshot, mode,
// disable) instead of a generic object-dictionary gateway.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/piperbot/piper-go/client"
)

// doneWriter tracks whether a handler already wrote a response, so the
// top-level dispatcher can fall back to a default error body when one
// didn't — mirrors the teacher's doneWriter exactly.
type doneWriter struct {
	http.ResponseWriter
	done bool
}

func (w *doneWriter) WriteHeader(status int) {
	w.done = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *doneWriter) Write(b []byte) (int, error) {
	w.done = true
	return w.ResponseWriter.Write(b)
}

// Server serves a handful of read/control routes over a Piper.
type Server struct {
	piper  *client.Piper
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer builds a Server with its routes registered. Callers mount it
// with http.ListenAndServe or their own http.Server.
func NewServer(piper *client.Piper, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{piper: piper, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/mode", s.handleMode)
	s.mux.HandleFunc("/disable", s.handleDisable)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	dw := &doneWriter{ResponseWriter: w}
	s.logger.Debug("httpapi: request", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(dw, r)
	if !dw.done {
		writeError(w, http.StatusNotFound, "no such route")
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	drv := s.piper.Driver()
	if drv == nil {
		writeError(w, http.StatusServiceUnavailable, "not connected")
		return
	}
	snap := drv.Store.Snapshot()
	resp := SnapshotResponse{
		LinkOK:        snap.Connection.LinkOK,
		FrameMask:     snap.Motion.FrameValidMask,
		GripperPos:    float64(snap.Gripper.Position),
		GripperEffort: float64(snap.Gripper.Effort),
		RxFPS:         snap.Connection.RxFPS,
		TxFPS:         snap.Connection.TxFPS,
	}
	for i := 0; i < 6; i++ {
		resp.Positions[i] = float64(snap.Motion.Positions[i])
		resp.Velocities[i] = float64(snap.Motion.Velocities[i])
		resp.Torques[i] = float64(snap.Motion.Torques[i])
	}
	resp.EndPose = [6]float64{
		float64(snap.Motion.EndPose.X), float64(snap.Motion.EndPose.Y), float64(snap.Motion.EndPose.Z),
		float64(snap.Motion.EndPose.RX), float64(snap.Motion.EndPose.RY), float64(snap.Motion.EndPose.RZ),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json body")
		return
	}
	var err error
	switch req.Mode {
	case "position":
		err = s.piper.EnablePositionMode()
	case "mit":
		err = s.piper.EnableMitMode()
	default:
		writeError(w, http.StatusBadRequest, "mode must be position or mit")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if err := s.piper.Disable(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
