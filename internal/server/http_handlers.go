package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/config"
	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/frames"
	"github.com/sanonone/kektorsom/pkg/render"
	"github.com/sanonone/kektorsom/pkg/som"
)

// maxBodyBytes caps request bodies; sample sets are the largest payload.
const maxBodyBytes = 8 << 20

// registerHTTPHandlers sets up the REST routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/runs", s.handleCreateRun)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /v1/runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("GET /v1/runs/{id}/frames", s.handleListFrames)
	mux.HandleFunc("GET /v1/runs/{id}/lattice", s.handleGetLattice)
	mux.HandleFunc("GET /v1/runs/{id}/image.png", s.handleGetImage)
	mux.HandleFunc("POST /v1/runs/{id}/bmu", s.handleFindBMU)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeHTTPError(w, status, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
	}

	cfg := req.apply(s.defaults)
	run, err := s.Trainer.Start(cfg)
	if err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Location", "/v1/runs/"+run.ID)
	s.writeHTTPResponse(w, http.StatusAccepted, run.Snapshot())
}

// apply overlays the request on base.
func (req CreateRunRequest) apply(base config.Config) config.Config {
	cfg := base
	if l := req.Lattice; l != nil {
		setIf(&cfg.Lattice.Rows, l.Rows)
		setIf(&cfg.Lattice.Cols, l.Cols)
		setIf(&cfg.Lattice.Dim, l.Dim)
	}
	if t := req.Training; t != nil {
		setIf(&cfg.Training.LearnRate, t.LearnRate)
		setIf(&cfg.Training.Iterations, t.Iterations)
		setIf(&cfg.Training.Seed, t.Seed)
		setIf(&cfg.Training.Workers, t.Workers)
	}
	if len(req.Samples) > 0 {
		cfg.Samples = req.Samples
	}
	if f := req.Frames; f != nil {
		setIf(&cfg.Frames.Every, f.Every)
		setIf(&cfg.Frames.Capacity, f.Capacity)
		setIf(&cfg.Frames.Precision, f.Precision)
	}
	return cfg
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, ListRunsResponse{Runs: s.Trainer.List()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, run.Snapshot())
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.Trainer.Remove(ctx, id); err != nil {
		s.writeRunError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFrames(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	steps := run.FrameSteps()
	if steps == nil {
		steps = []int{}
	}
	s.writeHTTPResponse(w, http.StatusOK, FramesResponse{RunID: run.ID, Steps: steps})
}

func (s *Server) handleGetLattice(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	l, step, precision, err := s.latticeAt(run, r)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	rows, cols := l.Size()
	s.writeHTTPResponse(w, http.StatusOK, LatticeResponse{
		RunID:     run.ID,
		Step:      step,
		Precision: precision,
		Rows:      rows,
		Cols:      cols,
		Dim:       l.Dim(),
		Nodes:     l.Nodes(),
	})
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	l, step, _, err := s.latticeAt(run, r)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	scale := run.Config().Render.Scale
	if v := r.URL.Query().Get("scale"); v != "" {
		scale, err = strconv.Atoi(v)
		if err != nil || scale < 1 || scale > 64 {
			s.writeHTTPError(w, http.StatusBadRequest, "scale must be an integer in [1, 64]")
			return
		}
	}

	// Encode first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, l, render.Options{Scale: scale}); err != nil {
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Som-Step", strconv.Itoa(step))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleFindBMU(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	var req BMURequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	p, dist, err := run.BMU(req.Vector)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, BMUResponse{Row: p.Row, Col: p.Col, Distance: dist})
}

// latticeAt returns the live lattice, or the recorded frame at ?step=N.
func (s *Server) latticeAt(run *trainer.Run, r *http.Request) (*som.Lattice, int, string, error) {
	v := r.URL.Query().Get("step")
	if v == "" {
		snap := run.Snapshot()
		return run.Lattice(), snap.StepsApplied, string(distance.Float32), nil
	}

	step, err := strconv.Atoi(v)
	if err != nil || step < 0 {
		return nil, 0, "", fmt.Errorf("%w: step must be a non-negative integer", errBadRequest)
	}
	f, err := run.Frame(step)
	if err != nil {
		return nil, 0, "", err
	}
	l, err := f.Lattice()
	if err != nil {
		return nil, 0, "", err
	}
	return l, f.Step, string(f.Precision), nil
}

var errBadRequest = errors.New("bad request")

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*trainer.Run, bool) {
	run, err := s.Trainer.Get(r.PathValue("id"))
	if err != nil {
		s.writeRunError(w, err)
		return nil, false
	}
	return run, true
}

// writeRunError maps domain errors to status codes.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trainer.ErrRunNotFound), errors.Is(err, frames.ErrNoFrame):
		s.writeHTTPError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, trainer.ErrDimensionMismatch), errors.Is(err, errBadRequest):
		s.writeHTTPError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeHTTPError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
