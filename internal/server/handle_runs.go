package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/recap"
	"github.com/playperu/pacer/internal/roster"
	"github.com/playperu/pacer/internal/run"
	"github.com/playperu/pacer/internal/snapshot"
)

type StartRunRequest struct {
	RunnerID                 string                `json:"runnerId"`
	PacerIDs                 []string              `json:"pacerIds"`
	VoiceMode                pacer.VoiceMode       `json:"voiceMode"`
	Vibe                     pacer.Vibe            `json:"vibe"`
	MusicEnabled             bool                  `json:"musicEnabled"`
	Haptics                  *pacer.HapticSettings `json:"haptics,omitempty"`
	EstimatedDurationMinutes float64               `json:"estimatedDurationMinutes,omitempty"`
}

// validate fills defaults and reports the first problem.
func (req *StartRunRequest) validate() error {
	if len(req.PacerIDs) == 0 {
		return run.ErrNoPacers
	}
	if req.VoiceMode == "" {
		req.VoiceMode = pacer.VoiceModeMix
	}
	if !req.VoiceMode.Valid() {
		return fmt.Errorf("unknown voice mode %q", req.VoiceMode)
	}
	if !req.Vibe.Valid() {
		return fmt.Errorf("unknown vibe %q", req.Vibe)
	}
	if req.Haptics == nil {
		h := pacer.DefaultHapticSettings()
		req.Haptics = &h
	}
	if !req.Haptics.DeviceMode.Valid() {
		return fmt.Errorf("unknown haptic device mode %q", req.Haptics.DeviceMode)
	}
	if !req.Haptics.Intensity.Valid() {
		return fmt.Errorf("unknown haptic intensity %q", req.Haptics.Intensity)
	}
	if req.EstimatedDurationMinutes < 0 {
		return errors.New("estimated duration must not be negative")
	}
	return nil
}

// RunResponse describes a run, live or archived.
type RunResponse struct {
	Active    bool             `json:"active"`
	Session   pacer.RunSession `json:"session"`
	Stats     pacer.RunStats   `json:"stats"`
	GPSStatus pacer.GPSStatus  `json:"gpsStatus,omitempty"`
	Overlay   *pacer.HypeEvent `json:"overlay,omitempty"`
}

type RunListResponse struct {
	Active   []pacer.RunSession `json:"active"`
	Archived []ArchivedRun      `json:"archived"`
}

// StatsResponse tells where the stats came from: "live", "cache" or
// "archive".
type StatsResponse struct {
	RunID  string         `json:"runId"`
	Source string         `json:"source"`
	Stats  pacer.RunStats `json:"stats"`
}

type IngestRequest struct {
	Points []pacer.GPSPoint `json:"points"`
}

type IngestResponse struct {
	Accepted  int             `json:"accepted"`
	Stats     pacer.RunStats  `json:"stats"`
	GPSStatus pacer.GPSStatus `json:"gpsStatus"`
}

// EndRunResponse carries the recap even when Archived is false, so the
// client keeps it when storage fails.
type EndRunResponse struct {
	Session  pacer.RunSession `json:"session"`
	Recap    recap.Summary    `json:"recap"`
	Archived bool             `json:"archived"`
}

func liveRun(h *hostedRun) RunResponse {
	resp := RunResponse{
		Active:    true,
		Session:   h.engine.Session(),
		Stats:     h.engine.Stats(),
		GPSStatus: h.engine.GPSStatus(),
	}
	if ev, ok := h.engine.Overlay(); ok {
		resp.Overlay = &ev
	}
	return resp
}

func handleStartRun(store Store, runs *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRunRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		all, err := store.ListPacers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load pacers")
			return
		}
		selected, err := roster.Select(all, req.PacerIDs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		h, err := runs.Start(r.Context(), run.Options{
			RunnerID:          req.RunnerID,
			Pacers:            selected,
			VoiceMode:         req.VoiceMode,
			Vibe:              req.Vibe,
			MusicEnabled:      req.MusicEnabled,
			Haptics:           *req.Haptics,
			EstimatedDuration: time.Duration(req.EstimatedDurationMinutes * float64(time.Minute)),
		})
		if errors.Is(err, run.ErrNoPacers) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to start run")
			return
		}
		writeJSON(w, http.StatusCreated, liveRun(h))
	}
}

func handleListRuns(store Store, runs *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archived, err := store.ListRuns(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		writeJSON(w, http.StatusOK, RunListResponse{Active: runs.Active(), Archived: archived})
	}
}

func handleGetRun(store Store, runs *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "runID")
		if h, ok := runs.Get(id); ok {
			writeJSON(w, http.StatusOK, liveRun(h))
			return
		}
		archived, err := store.GetRun(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		writeJSON(w, http.StatusOK, RunResponse{Session: archived.Session, Stats: archived.Stats})
	}
}

// handleRunStats serves the live stats of a hosted run, then falls back to
// the snapshot cache and finally to the archive.
func handleRunStats(store Store, runs *Registry, snapshots *snapshot.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "runID")
		if h, ok := runs.Get(id); ok {
			writeJSON(w, http.StatusOK, StatsResponse{RunID: id, Source: "live", Stats: h.engine.Stats()})
			return
		}
		if snapshots != nil {
			stats, err := snapshots.Get(r.Context(), id)
			if err == nil {
				writeJSON(w, http.StatusOK, StatsResponse{RunID: id, Source: "cache", Stats: stats})
				return
			}
			if !errors.Is(err, snapshot.ErrMiss) {
				runs.logger.Warn("reading stats snapshot", "run_id", id, "error", err)
			}
		}
		archived, err := store.GetRun(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		writeJSON(w, http.StatusOK, StatsResponse{RunID: id, Source: "archive", Stats: archived.Stats})
	}
}

func handleIngestPoints() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := runFrom(r)

		var req IngestRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		before := len(h.engine.Points())
		for _, p := range req.Points {
			if err := h.engine.Ingest(p); err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, IngestResponse{
			Accepted:  len(h.engine.Points()) - before,
			Stats:     h.engine.Stats(),
			GPSStatus: h.engine.GPSStatus(),
		})
	}
}

func handleEndRun(runs *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := runFrom(r)

		archived, err := runs.Finish(r.Context(), h.id)
		switch {
		case errors.Is(err, run.ErrRunEnded), errors.Is(err, ErrNotFound):
			writeError(w, http.StatusConflict, "run already ended")
			return
		case errors.Is(err, ErrNotArchived):
			runs.logger.Error("archiving run", "run_id", h.id, "error", err)
		case err != nil:
			runs.logger.Error("ending run", "run_id", h.id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to end run")
			return
		}
		writeJSON(w, http.StatusOK, EndRunResponse{
			Session:  archived.Session,
			Recap:    recap.Build(archived.Session, archived.Stats),
			Archived: err == nil,
		})
	}
}

// handleRunGPX exports the run's trace, live or archived.
func handleRunGPX(store Store, runs *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "runID")

		var (
			session pacer.RunSession
			stats   pacer.RunStats
			points  []pacer.GPSPoint
		)
		if h, ok := runs.Get(id); ok {
			session, stats, points = h.engine.Session(), h.engine.Stats(), h.engine.Points()
		} else {
			archived, err := store.GetRun(r.Context(), id)
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load run")
				return
			}
			points, err = store.RunPoints(r.Context(), id)
			if err != nil && !errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusInternalServerError, "failed to load run points")
				return
			}
			session, stats = archived.Session, archived.Stats
		}

		sum := recap.Build(session, stats)
		var buf bytes.Buffer
		err := recap.WriteGPX(&buf, sum.Title, sum.Description, points)
		if errors.Is(err, recap.ErrNoPoints) {
			writeError(w, http.StatusNotFound, "run has no GPS points")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export gpx")
			return
		}

		w.Header().Set("Content-Type", "application/gpx+xml")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pacer-%s.gpx"`, id))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
