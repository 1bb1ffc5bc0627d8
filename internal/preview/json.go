package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON sends v with status and marks the response uncacheable.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("preview: json encode failed", slog.String("error", err.Error()))
	}
}

const (
	healthOK       = "ok"
	healthBuilding = "building"
)

type healthResponse struct {
	Status string `json:"status"`
}

func writeHealth(w http.ResponseWriter, status int, state string) {
	writeJSON(w, status, healthResponse{Status: state})
}

type errResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResponse{Error: msg})
}
