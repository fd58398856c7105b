package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ukydev/garage/internal/middleware"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.LoggerFromContext(r.Context()).WithError(err).Error("Failed to encode response")
	}
}

// decodeJSON reads a single JSON value from the body. An empty body returns
// errEmptyBody so callers can decide whether it is allowed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}
