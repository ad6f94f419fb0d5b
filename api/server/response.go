package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hanpf2391/Flux/lib/grid"
)

// response is the envelope every JSON endpoint answers with.
type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, "success", data)
}

// writeError maps a failure to its HTTP status and writes an error
// envelope. Unclassified errors become a 500 with a generic message so
// internals never leak to the browser.
func writeError(w http.ResponseWriter, err error) {
	var gridErr *grid.Error
	if !errors.As(err, &gridErr) {
		writeEnvelope(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	var status int
	switch gridErr.Kind {
	case grid.KindConflict:
		status = http.StatusConflict
	case grid.KindThrottled:
		status = http.StatusTooManyRequests
	case grid.KindNotFound:
		status = http.StatusNotFound
	case grid.KindValidation:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	writeEnvelope(w, status, gridErr.Msg, nil)
}

// writeEnvelope writes one envelope with the given status code.
func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Code: status, Message: message, Data: data}); err != nil {
		Logger.Errorf("failed to write response: %v", err)
	}
}
