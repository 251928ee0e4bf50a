package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/robovac-bridge/internal/device"
)

// deviceView is a registered vacuum as the API shows it.
type deviceView struct {
	DUID  string `json:"duid"`
	Name  string `json:"name"`
	Model string `json:"model"`
	Slug  string `json:"slug"`
}

func newDeviceView(d device.Device) deviceView {
	return deviceView{DUID: d.DUID, Name: d.Name, Model: d.Model, Slug: d.Slug()}
}

// handleListDevices returns all registered devices sorted by duid.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.bridge.Devices().List()
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, newDeviceView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.bridge.Devices().Get(chi.URLParam(r, "duid"))
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeviceView(d))
}

// handleGetDeviceStates returns every state of a device that holds a value,
// keyed by "<section>.<field>".
func (s *Server) handleGetDeviceStates(w http.ResponseWriter, r *http.Request) {
	duid := chi.URLParam(r, "duid")
	states, err := s.bridge.States(duid)
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"duid":   duid,
		"states": states,
		"count":  len(states),
	})
}

func (s *Server) writeDeviceError(w http.ResponseWriter, err error) {
	if errors.Is(err, device.ErrDeviceNotFound) {
		writeNotFound(w, "device not found")
		return
	}
	s.logger.Error("device lookup failed", "error", err)
	writeInternalError(w, "failed to look up device")
}
