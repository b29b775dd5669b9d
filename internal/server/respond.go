package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5/middleware"

	"procstudio-console/internal/procstudio"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps a failed API call to a response. Auth and lookup
// failures keep their status; anything else is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	entry := log.WithError(err).WithFields(log.Fields{
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
	})

	var apiErr *procstudio.APIError
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			entry.Debug("upstream rejected request")
			writeError(w, apiErr.StatusCode, http.StatusText(apiErr.StatusCode))
			return
		}
		entry.WithField("status", apiErr.StatusCode).Warn("upstream error")
		writeError(w, http.StatusBadGateway, "procstudio api error")
	case errors.Is(err, procstudio.ErrMissingToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, context.DeadlineExceeded):
		entry.Warn("upstream timeout")
		writeError(w, http.StatusGatewayTimeout, "procstudio api timeout")
	default:
		entry.Error("upstream call failed")
		writeError(w, http.StatusBadGateway, "procstudio api error: "+err.Error())
	}
}
