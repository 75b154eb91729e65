package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bluelx/janus-console/pkg/apperr"
)

const (
	maxBodyBytesTiny  int64 = 64 << 10
	maxBodyBytesSmall int64 = 1 << 20
)

// respondJSON sends a JSON response with appropriate headers.
func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// respondError sends a structured JSON error response.
func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	response := struct {
		Success   bool   `json:"success"`
		Status    int    `json:"status"`
		Code      string `json:"code,omitempty"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}{
		Success:   false,
		Status:    status,
		Message:   http.StatusText(status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		response.Code = string(appErr.Code)
		response.Message = appErr.Message
	} else if err != nil {
		response.Message = err.Error()
	}

	_ = json.NewEncoder(w).Encode(response)
}

// decodeJSONBody decodes a bounded JSON request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) (int, error) {
	if r == nil || r.Body == nil {
		return http.StatusBadRequest, fmt.Errorf("request body required")
	}
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return http.StatusBadRequest, fmt.Errorf("request body required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body too large (max %d bytes)", maxBytes)
		}
		return http.StatusBadRequest, err
	}
	return 0, nil
}

// parseIntDefault parses an integer with a default fallback.
func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return def
}
