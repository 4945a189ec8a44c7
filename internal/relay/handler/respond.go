package handler

import (
	"encoding/json"
	"net/http"
)

// Ответы в формате, который ждут дашборд и расширение
type ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ack{Success: false, Error: msg})
}
