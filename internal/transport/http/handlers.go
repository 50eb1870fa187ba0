package http

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"planningpoker/internal/domain"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionExistsResponse is the response for checking if a session exists
type SessionExistsResponse struct {
	Exists       bool       `json:"exists"`
	Participants int        `json:"participants"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveSessions        int `json:"activeSessions"`
	TotalParticipants     int `json:"totalParticipants"`
	ConnectedParticipants int `json:"connectedParticipants"`
	Connections           int `json:"connections"`
}

// VoteValuesResponse lists the estimation points offered to clients
type VoteValuesResponse struct {
	Values []float64 `json:"values"`
}

// handleSessionExists handles GET /api/sessions/{sessionId}/exists
func (s *Server) handleSessionExists(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		s.sendError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "Session ID is required")
		return
	}

	room, err := s.hub.Lookup(sessionID)
	if err != nil {
		s.sendSuccess(w, &SessionExistsResponse{Exists: false})
		return
	}

	createdAt := room.GetCreatedAt()
	s.sendSuccess(w, &SessionExistsResponse{
		Exists:       true,
		Participants: room.GetParticipantCount(),
		CreatedAt:    &createdAt,
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveSessions:        s.hub.GetSessionCount(),
		TotalParticipants:     s.hub.GetTotalParticipantCount(),
		ConnectedParticipants: s.hub.GetConnectedParticipantCount(),
		Connections:           s.hub.GetConnectionCount(),
	})
}

// handleVoteValues handles GET /api/vote-values
func (s *Server) handleVoteValues(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &VoteValuesResponse{
		Values: domain.VoteValues,
	})
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	}); err != nil {
		s.logger.Debug().Err(err).Msg("write response failed")
	}
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}); err != nil {
		s.logger.Debug().Err(err).Msg("write response failed")
	}
}
