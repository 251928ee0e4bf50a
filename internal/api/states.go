package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robovac-bridge/internal/state"
)

// setStateRequest is the body of PUT /states/{id}.
//
// With ack omitted and a boolean val the write is a trigger: a plain
// command stored as confirmed.
type setStateRequest struct {
	Val any   `json:"val"`
	Ack *bool `json:"ack,omitempty"`
}

// stateResponse is one state entry with its fully-qualified id.
type stateResponse struct {
	ID string `json:"id"`
	state.Entry
	Changed *bool `json:"changed,omitempty"`
}

// handleGetState returns one state entry.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.bridge.Read(id)
	if !ok {
		writeNotFound(w, "state not found")
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{ID: s.bridge.Qualify(id), Entry: entry})
}

// handleSetState writes a declared state through the bridge, which
// publishes it when it changed.
//
// Unconfirmed writes (commands) are only accepted for fields the
// capability schema marks writable. Confirmed writes report device-side
// values and may target any declared field.
func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	desc, ok := s.bridge.Descriptor(id)
	if !ok {
		writeNotFound(w, "state not declared")
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	var ack bool
	switch {
	case req.Ack != nil:
		ack = *req.Ack
	default:
		_, isBool := req.Val.(bool)
		ack = isBool
	}

	if !ack && !desc.Write {
		writeForbidden(w, "state is read-only")
		return
	}

	entry, changed, err := s.bridge.Write(id, req.Val, ack)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	qualified := s.bridge.Qualify(id)
	if changed {
		s.hub.Broadcast(ChannelStateChanged, NewStateEvent(qualified, entry))
	}
	writeJSON(w, http.StatusOK, stateResponse{ID: qualified, Entry: entry, Changed: &changed})
}
