package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"planningpoker/internal/app"
	"planningpoker/internal/domain"
	"planningpoker/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client is one websocket connection. It speaks for a single participant and is bound
// to at most one session at a time.
type Client struct {
	conn          *websocket.Conn
	hub           *app.Hub
	connectionID  string
	participantID string
	strictVotes   bool

	// room is only written by the read pump
	room   *app.Room
	roomMu sync.RWMutex

	send    chan []byte
	done    chan struct{}
	metrics metrics.Recorder
	logger  zerolog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new websocket client
func NewClient(conn *websocket.Conn, hub *app.Hub, connectionID, participantID string, strictVotes bool, rec metrics.Recorder, logger zerolog.Logger) *Client {
	return &Client{
		conn:          conn,
		hub:           hub,
		connectionID:  connectionID,
		participantID: participantID,
		strictVotes:   strictVotes,
		send:          make(chan []byte, sendBufferSize),
		done:          make(chan struct{}),
		metrics:       rec,
		logger:        logger.With().Str("connectionId", connectionID).Logger(),
	}
}

// GetConnectionID implements app.ClientConnection
func (c *Client) GetConnectionID() string {
	return c.connectionID
}

// GetParticipantID returns the participant this connection speaks for
func (c *Client) GetParticipantID() string {
	return c.participantID
}

// Send implements app.ClientConnection. The frame is shared with other recipients and
// must not be modified.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Msg("send buffer full, message dropped")
		return nil
	}
}

// sendEvent encodes and sends a frame meant for this connection only
func (c *Client) sendEvent(event *domain.Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(event.Type)).Msg("failed to encode event")
		return
	}
	c.Send(frame)
}

// Close implements app.ClientConnection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps and blocks until the connection ends
func (c *Client) Run() {
	c.metrics.ConnectionOpened()
	defer c.metrics.ConnectionClosed()

	c.sendEvent(domain.NewEvent(domain.EventConnected, "", &domain.ConnectedPayload{ParticipantID: c.participantID}))

	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the websocket connection
func (c *Client) readPump() {
	defer func() {
		c.unbind()
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the websocket connection, one frame each
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Debug().Err(err).Msg("malformed frame dropped")
		return
	}

	switch msg.Type {
	case MsgCreateSession:
		c.handleCreateSession(msg.Payload)
	case MsgJoinSession:
		c.handleJoinSession(msg.Payload)
	case MsgSetRole:
		c.handleSetRole(msg.Payload)
	case MsgCastVote:
		c.handleCastVote(msg.Payload)
	case MsgRevealVotes:
		c.withRoom(msg.Type, func(room *app.Room) domain.Outcome {
			return room.RevealVotes(c.participantID)
		})
	case MsgStartNewRound:
		c.handleStartNewRound(msg.Payload)
	case MsgPing:
		c.sendEvent(domain.NewEvent(domain.EventPong, "", nil))
	default:
		c.logger.Debug().Str("type", string(msg.Type)).Msg("unknown message type dropped")
	}
}

// handleCreateSession creates a session with this connection's participant as creator
func (c *Client) handleCreateSession(raw json.RawMessage) {
	var p CreateSessionPayload
	if err := decodePayload(raw, &p); err != nil {
		c.logger.Debug().Err(err).Msg("create-session dropped")
		return
	}

	c.unbind()
	if p.ParticipantID != "" {
		c.participantID = p.ParticipantID
	}

	room, err := c.hub.CreateSession(c.participantID, p.Name, c)
	if err != nil {
		c.logger.Error().Err(err).Msg("create session failed")
		c.sendError(ErrCodeInternalError, "Could not create session")
		return
	}

	c.bind(room)
}

// handleJoinSession joins or rejoins a session, detaching from any other session first
func (c *Client) handleJoinSession(raw json.RawMessage) {
	var p JoinSessionPayload
	if err := decodePayload(raw, &p); err != nil {
		c.logger.Debug().Err(err).Msg("join-session dropped")
		return
	}

	room, err := c.hub.Lookup(p.SessionID)
	if err != nil {
		c.sendJoinError(p.SessionID, err)
		return
	}

	participantID := c.participantID
	if p.ParticipantID != "" {
		participantID = p.ParticipantID
	}

	if c.currentRoom() != room || participantID != c.participantID {
		c.unbind()
	}
	c.participantID = participantID

	if err := room.Join(participantID, p.Name, c); err != nil {
		// The session was destroyed between lookup and join.
		c.sendJoinError(p.SessionID, err)
		return
	}

	c.bind(room)
}

func (c *Client) handleSetRole(raw json.RawMessage) {
	var p SetRolePayload
	if err := decodePayload(raw, &p); err != nil {
		c.logger.Debug().Err(err).Msg("set-role dropped")
		return
	}

	c.withRoom(MsgSetRole, func(room *app.Room) domain.Outcome {
		return room.SetRole(c.participantID, domain.Role(p.Role))
	})
}

func (c *Client) handleCastVote(raw json.RawMessage) {
	var p CastVotePayload
	if err := decodePayload(raw, &p); err != nil || p.Value == nil {
		c.logger.Debug().Err(err).Msg("cast-vote dropped")
		return
	}

	if err := domain.ValidateVote(*p.Value, c.strictVotes); err != nil {
		c.logger.Debug().Err(err).Float64("value", *p.Value).Msg("cast-vote dropped")
		return
	}

	c.withRoom(MsgCastVote, func(room *app.Room) domain.Outcome {
		return room.CastVote(c.participantID, *p.Value)
	})
}

func (c *Client) handleStartNewRound(raw json.RawMessage) {
	var p StartNewRoundPayload
	if err := decodePayload(raw, &p); err != nil {
		c.logger.Debug().Err(err).Msg("start-new-round dropped")
		return
	}

	c.withRoom(MsgStartNewRound, func(room *app.Room) domain.Outcome {
		return room.StartNewRound(c.participantID, p.Text())
	})
}

// withRoom runs a command against the bound session. Unbound connections are ignored.
func (c *Client) withRoom(msgType MessageType, fn func(room *app.Room) domain.Outcome) {
	room := c.currentRoom()
	if room == nil {
		c.logger.Debug().Str("type", string(msgType)).Msg("command from unbound connection ignored")
		return
	}

	fn(room)
}

func (c *Client) currentRoom() *app.Room {
	c.roomMu.RLock()
	defer c.roomMu.RUnlock()
	return c.room
}

func (c *Client) bind(room *app.Room) {
	c.roomMu.Lock()
	c.room = room
	c.roomMu.Unlock()

	c.logger.Debug().
		Str("sessionId", room.GetSessionID()).
		Str("participantId", c.participantID).
		Msg("connection bound")
}

// unbind detaches the connection from its session, which sees a regular disconnect
func (c *Client) unbind() {
	c.roomMu.Lock()
	room := c.room
	c.room = nil
	c.roomMu.Unlock()

	if room != nil {
		room.Disconnect(c.participantID, c.connectionID)
	}
}

func (c *Client) sendJoinError(sessionID string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.sendError(ErrCodeSessionNotFound, "Session "+sessionID+" not found")
		return
	}

	c.logger.Error().Err(err).Str("sessionId", sessionID).Msg("join failed")
	c.sendError(ErrCodeInternalError, "Could not join session")
}

// sendError sends an error frame to this connection only
func (c *Client) sendError(code, message string) {
	c.sendEvent(domain.NewEvent(domain.EventError, "", &domain.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
