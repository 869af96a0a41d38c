package web

import (
	"encoding/json"
	"errors"
	"net/http"

	deverrors "github.com/sweeney/ces-device/internal/errors"
)

// ErrorJSON is the envelope for a failed request.
type ErrorJSON struct {
	Error ErrorInner `json:"error"`
}

// ErrorInner contains the error details.
type ErrorInner struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// writeError renders err with the status of its DeviceError, or as an
// internal error if it is not one.
func writeError(w http.ResponseWriter, err error) {
	var dErr *deverrors.DeviceError
	if !errors.As(err, &dErr) {
		dErr = deverrors.NewInternal(err)
	}

	data, _ := json.Marshal(ErrorJSON{Error: ErrorInner{
		Code:    string(dErr.Code),
		Message: dErr.Message,
		Details: dErr.Details,
	}})
	writeJSON(w, dErr.Status, data)
}
