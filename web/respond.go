package web

import (
	"encoding/json"
	"io"
	"net/http"
)

// ── Response helpers ─────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	web.JSON(w, http.StatusOK, map[string]any{"message": "ok"})
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Text sends a plain-text response.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// Success sends 200 JSON: {"data": v}
func Success(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func Created(w http.ResponseWriter, v any) {
	JSON(w, http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	web.Error(w, http.StatusNotFound, "Resource not found")
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, envelope{"message": message})
}

// NotFound sends 404.
func NotFound(w http.ResponseWriter, message ...string) {
	Error(w, http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func ServerError(w http.ResponseWriter, message ...string) {
	Error(w, http.StatusInternalServerError, first(message, "Server Error."))
}

// ── helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
