package ws

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"planningpoker/internal/app"
	"planningpoker/internal/metrics"
)

// Options tune how connections are accepted and how their commands are checked
type Options struct {
	// AllowedOrigins lists accepted Origin headers; "*" accepts any origin
	AllowedOrigins []string
	// StrictVoteValues drops votes that are not one of domain.VoteValues
	StrictVoteValues bool
}

// Handler handles websocket connections
type Handler struct {
	hub      *app.Hub
	opts     Options
	upgrader websocket.Upgrader
	metrics  metrics.Recorder
	logger   zerolog.Logger
}

// NewHandler creates a new websocket handler
func NewHandler(hub *app.Hub, opts Options, rec metrics.Recorder, logger zerolog.Logger) *Handler {
	h := &Handler{
		hub:     hub,
		opts:    opts,
		metrics: rec,
		logger:  logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin accepts same-origin requests without an Origin header and any listed origin
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request. The participant identity comes from the participantId
// query parameter, or a fresh one is generated and reported in the connected frame.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participantId")
	generated := participantID == ""
	if generated {
		participantID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	connectionID := uuid.NewString()
	client := NewClient(conn, h.hub, connectionID, participantID, h.opts.StrictVoteValues, h.metrics, h.logger)

	h.logger.Info().
		Str("connectionId", connectionID).
		Str("participantId", participantID).
		Bool("generatedId", generated).
		Msg("websocket connected")

	client.Run()

	h.logger.Info().
		Str("connectionId", connectionID).
		Str("participantId", client.GetParticipantID()).
		Msg("websocket disconnected")
}
