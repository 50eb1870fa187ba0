package app

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"planningpoker/internal/config"
	"planningpoker/internal/domain"
	"planningpoker/internal/metrics"
)

const (
	// DefaultSessionIDLength is the default length for public session identifiers
	DefaultSessionIDLength = 8

	maxIDAttempts = 10
)

// Hub is the registry of all live sessions
type Hub struct {
	sessions   map[string]*Room
	mu         sync.RWMutex
	idLength   int
	clock      clockwork.Clock
	supervisor *Supervisor
	metrics    metrics.Recorder
	logger     zerolog.Logger
}

// NewHub creates a new session registry
func NewHub(cfg config.SessionConfig, clock clockwork.Clock, rec metrics.Recorder, logger zerolog.Logger) *Hub {
	idLength := cfg.IDLength
	if idLength <= 0 {
		idLength = DefaultSessionIDLength
	}

	return &Hub{
		sessions:   make(map[string]*Room),
		idLength:   idLength,
		clock:      clock,
		supervisor: NewSupervisor(clock, cfg.ReconnectGracePeriod, logger),
		metrics:    rec,
		logger:     logger,
	}
}

// CreateSession creates a session whose creator is bound to client.
// The creator receives session-created followed by the first snapshot.
func (h *Hub) CreateSession(creatorID, name string, client ClientConnection) (*Room, error) {
	h.mu.Lock()

	sessionID, err := h.generateSessionID()
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}

	connectionID := ""
	if client != nil {
		connectionID = client.GetConnectionID()
	}

	session := domain.NewSession(sessionID, creatorID, name, connectionID, h.clock.Now())
	room := NewRoom(session, h.clock, h.supervisor, h.metrics, h.logger, h.Destroy)
	h.sessions[sessionID] = room
	h.mu.Unlock()

	room.announceCreated(client)

	h.metrics.SessionCreated()
	h.metrics.CommandHandled(CmdCreateSession, domain.Applied.String())
	h.logger.Info().
		Str("sessionId", sessionID).
		Str("creatorId", creatorID).
		Msg("session created")

	return room, nil
}

// Lookup returns a session room by its public identifier
func (h *Hub) Lookup(sessionID string) (*Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return room, nil
}

// Destroy removes a session. Destroying an unknown session is a no-op.
func (h *Hub) Destroy(sessionID string) {
	h.mu.Lock()
	room, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	room.Close()
	h.supervisor.CancelSession(sessionID)
	h.metrics.SessionDestroyed()
	h.logger.Info().Str("sessionId", sessionID).Msg("session destroyed")
}

// GetSessionCount returns the number of active sessions
func (h *Hub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalParticipantCount returns the total number of participants across all sessions
func (h *Hub) GetTotalParticipantCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.sessions {
		total += room.GetParticipantCount()
	}
	return total
}

// GetConnectedParticipantCount returns the number of connected participants across all sessions
func (h *Hub) GetConnectedParticipantCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.sessions {
		total += room.GetConnectedCount()
	}
	return total
}

// GetConnectionCount returns the number of client connections bound to sessions
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.sessions {
		total += room.GetConnectionCount()
	}
	return total
}

// Close shuts down the hub, all sessions and all pending grace timers
func (h *Hub) Close() {
	h.supervisor.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.sessions {
		room.Close()
	}
	h.sessions = make(map[string]*Room)
}

// generateSessionID returns an identifier not used by any live session (caller must hold lock)
func (h *Hub) generateSessionID() (string, error) {
	for attempts := 0; attempts < maxIDAttempts; attempts++ {
		id, err := gonanoid.New(h.idLength)
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		if _, exists := h.sessions[id]; !exists {
			return id, nil
		}
	}

	return "", domain.ErrIDExhausted
}
