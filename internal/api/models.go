package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robovac-bridge/internal/capability"
)

// modelView summarises one capability model.
type modelView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// handleListModels returns every registered capability model.
func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	ids := s.capabilities.Models()
	views := make([]modelView, 0, len(ids))
	for _, id := range ids {
		m, ok := s.capabilities.Model(id)
		if !ok {
			continue
		}
		views = append(views, modelView{ID: m.ID, Name: m.Name, Parent: m.Parent})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": views, "count": len(views)})
}

// handleGetModel returns the merged schema of a model,
// section → field → descriptor.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	schema, err := s.capabilities.Schema(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, capability.ErrUnknownModel) {
			writeNotFound(w, "model not found")
			return
		}
		s.logger.Error("building capability schema failed", "error", err)
		writeInternalError(w, "failed to build schema")
		return
	}
	writeJSON(w, http.StatusOK, schema.Export())
}
