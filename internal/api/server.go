// Package api exposes the hub's small REST surface: health plus the chat
// history fetch path. History is what makes the hub's best-effort real-time
// contract safe: anything missed live is retrievable here.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"campushub/internal/call"
	"campushub/internal/websocket"
	"campushub/pkg/interfaces"
)

// Server handles the REST endpoints.
type Server struct {
	store    interfaces.MessageStore
	registry *websocket.Registry
	signaler *call.Signaler
}

// NewServer creates the API server over its read-only dependencies.
func NewServer(store interfaces.MessageStore, registry *websocket.Registry, signaler *call.Signaler) *Server {
	return &Server{
		store:    store,
		registry: registry,
		signaler: signaler,
	}
}

// ServeHTTP routes API requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/health":
		s.handleHealth(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/history/course/"):
		s.handleCourseHistory(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/history/private/"):
		s.handlePrivateHistory(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := "healthy"
	code := http.StatusOK
	if err := s.store.HealthCheck(r.Context()); err != nil {
		log.Printf("Health check failed: %v", err)
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	stats := s.registry.Stats()
	writeJSON(w, code, map[string]interface{}{
		"status":         status,
		"connections":    stats["connections"],
		"active_courses": stats["active_courses"],
		"active_calls":   s.signaler.ActiveCalls(),
	})
}

// handleCourseHistory serves GET /api/history/course/{courseID}?limit=n.
func (s *Server) handleCourseHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	courseID := strings.TrimPrefix(r.URL.Path, "/api/history/course/")
	if courseID == "" || strings.Contains(courseID, "/") {
		writeError(w, http.StatusBadRequest, "invalid course id")
		return
	}

	messages, err := s.store.CourseHistory(r.Context(), courseID, parseLimit(r))
	if err != nil {
		log.Printf("Course history query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"course_id": courseID,
		"messages":  messages,
	})
}

// handlePrivateHistory serves GET /api/history/private/{userA}/{userB}?limit=n.
func (s *Server) handlePrivateHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/history/private/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "expected /api/history/private/{userA}/{userB}")
		return
	}

	messages, err := s.store.PrivateHistory(r.Context(), parts[0], parts[1], parseLimit(r))
	if err != nil {
		log.Printf("Private history query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participants": parts,
		"messages":     messages,
	})
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
