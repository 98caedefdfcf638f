package fakeapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON serialises v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("fakeapi: failed to encode response", "err", err)
	}
}

// writeDetail writes the backend's error shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func badRequest(w http.ResponseWriter, msg string) { writeDetail(w, http.StatusBadRequest, msg) }

func notFound(w http.ResponseWriter, msg string) { writeDetail(w, http.StatusNotFound, msg) }

// unprocessable mirrors request-model validation failures, whose detail is a
// list of entries.
func unprocessable(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]string{{"msg": msg}},
	})
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
