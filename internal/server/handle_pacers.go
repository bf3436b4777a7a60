package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/roster"
)

func handleListPacers(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pacers, err := store.ListPacers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list pacers")
			return
		}
		writeJSON(w, http.StatusOK, pacers)
	}
}

func handleGetPacer(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.GetPacer(r.Context(), chi.URLParam(r, "pacerID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "pacer not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load pacer")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handleCreatePacer stores a pacer, replacing any pacer with the same id.
func handleCreatePacer(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p pacer.Pacer
		if err := readJSON(w, r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if p.ID == "" {
			p.ID = "pacer_" + uuid.NewString()
		}
		if p.Memos == nil {
			p.Memos = []pacer.Memo{}
		}
		if p.Tracks == nil {
			p.Tracks = []pacer.Track{}
		}
		if err := roster.Validate([]pacer.Pacer{p}); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.PutPacer(r.Context(), p); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save pacer")
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}
