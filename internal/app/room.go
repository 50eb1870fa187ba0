package app

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"planningpoker/internal/domain"
	"planningpoker/internal/metrics"
)

// Command names, shared with the transport layer and used as metric labels
const (
	CmdCreateSession = "create-session"
	CmdJoinSession   = "join-session"
	CmdSetRole       = "set-role"
	CmdCastVote      = "cast-vote"
	CmdRevealVotes   = "reveal-votes"
	CmdStartNewRound = "start-new-round"
	CmdDisconnect    = "disconnect"
)

const eventQueueSize = 256

// ClientConnection represents a connected client. Send receives an already encoded frame.
type ClientConnection interface {
	Send(frame []byte) error
	GetConnectionID() string
	Close() error
}

// Room wraps a session with single-owner concurrency control and client fan-out
type Room struct {
	session   *domain.Session
	mu        sync.Mutex
	closed    bool // no longer accepts commands
	stopped   bool // broadcaster shut down
	clients   map[string]ClientConnection // connectionID -> client
	clientsMu sync.RWMutex

	clock      clockwork.Clock
	supervisor *Supervisor
	metrics    metrics.Recorder
	logger     zerolog.Logger
	onEmpty    func(sessionID string)

	// Event channel for broadcasting
	events chan *domain.Event
	done   chan struct{}
}

// NewRoom creates a room around an existing session and starts its broadcaster
func NewRoom(session *domain.Session, clock clockwork.Clock, supervisor *Supervisor, rec metrics.Recorder, logger zerolog.Logger, onEmpty func(sessionID string)) *Room {
	room := &Room{
		session:    session,
		clients:    make(map[string]ClientConnection),
		clock:      clock,
		supervisor: supervisor,
		metrics:    rec,
		logger:     logger.With().Str("sessionId", session.ID).Logger(),
		onEmpty:    onEmpty,
		events:     make(chan *domain.Event, eventQueueSize),
		done:       make(chan struct{}),
	}

	go room.eventLoop()

	return room
}

// GetSessionID returns the public session identifier
func (r *Room) GetSessionID() string {
	return r.session.ID
}

// GetCreatedAt returns when the session was created
func (r *Room) GetCreatedAt() time.Time {
	return r.session.CreatedAt
}

// GetParticipantCount returns the roster size
func (r *Room) GetParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.session.Participants)
}

// GetConnectedCount returns the number of participants currently connected
func (r *Room) GetConnectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.GetConnectedCount()
}

// GetConnectionCount returns the number of attached connections
func (r *Room) GetConnectionCount() int {
	r.clientsMu.RLock()
	defer r.clientsMu.RUnlock()
	return len(r.clients)
}

// Snapshot returns the current public view of the session
func (r *Room) Snapshot() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Snapshot()
}

// attach registers a client connection for the session
func (r *Room) attach(client ClientConnection) {
	if client == nil {
		return
	}
	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()
	r.clients[client.GetConnectionID()] = client
}

// Detach removes a client connection. The participant it spoke for is untouched.
func (r *Room) Detach(connectionID string) {
	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()
	delete(r.clients, connectionID)
}

// announceCreated sends session-created to the creator followed by the first snapshot
func (r *Room) announceCreated(client ClientConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attach(client)
	if client != nil {
		r.queueEvent(domain.NewTargetedEvent(domain.EventSessionCreated, r.session.ID, client.GetConnectionID(),
			&domain.SessionCreatedPayload{SessionID: r.session.ID}))
	}
	r.publishLocked()
}

// Join adds or reconnects a participant and binds the client to the session.
// A room that was destroyed under a stale reference reports ErrSessionNotFound.
func (r *Room) Join(participantID, name string, client ClientConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrSessionNotFound
	}

	connectionID := ""
	if client != nil {
		connectionID = client.GetConnectionID()
	}

	rejoined := r.session.Join(participantID, name, connectionID, r.clock.Now())
	cancelled := r.supervisor.Cancel(r.session.ID, participantID)
	r.attach(client)

	r.metrics.CommandHandled(CmdJoinSession, domain.Applied.String())
	r.logger.Info().
		Str("participantId", participantID).
		Bool("rejoined", rejoined).
		Bool("graceCancelled", cancelled).
		Msg("participant joined")

	r.publishLocked()
	return nil
}

// SetRole changes the caller's role
func (r *Room) SetRole(participantID string, role domain.Role) domain.Outcome {
	return r.apply(CmdSetRole, participantID, func(s *domain.Session) domain.Outcome {
		return s.SetRole(participantID, role)
	})
}

// CastVote records the caller's vote in the current round
func (r *Room) CastVote(participantID string, value float64) domain.Outcome {
	return r.apply(CmdCastVote, participantID, func(s *domain.Session) domain.Outcome {
		return s.CastVote(participantID, value)
	})
}

// RevealVotes reveals the current round (creator only)
func (r *Room) RevealVotes(participantID string) domain.Outcome {
	return r.apply(CmdRevealVotes, participantID, func(s *domain.Session) domain.Outcome {
		return s.RevealVotes(participantID)
	})
}

// StartNewRound replaces the current round (creator only)
func (r *Room) StartNewRound(participantID, description string) domain.Outcome {
	return r.apply(CmdStartNewRound, participantID, func(s *domain.Session) domain.Outcome {
		return s.StartRound(participantID, description, r.clock.Now())
	})
}

// Disconnect detaches the connection, marks the participant disconnected and starts the
// grace timer that removes them unless they rejoin in time
func (r *Room) Disconnect(participantID, connectionID string) domain.Outcome {
	r.Detach(connectionID)

	return r.apply(CmdDisconnect, participantID, func(s *domain.Session) domain.Outcome {
		outcome := s.Disconnect(participantID, connectionID)
		if outcome.ShouldBroadcast() {
			// Scheduled under the session lock so a concurrent rejoin always sees the timer.
			r.supervisor.Schedule(s.ID, participantID, func(token uint64) {
				r.expire(participantID, token)
			})
		}
		return outcome
	})
}

// apply runs a command under the session lock and broadcasts if it changed state
func (r *Room) apply(command, participantID string, fn func(s *domain.Session) domain.Outcome) domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.Ignored
	}

	outcome := fn(r.session)
	r.metrics.CommandHandled(command, outcome.String())

	r.logger.Debug().
		Str("command", command).
		Str("participantId", participantID).
		Stringer("outcome", outcome).
		Msg("command handled")

	if outcome.ShouldBroadcast() {
		r.publishLocked()
	}

	return outcome
}

// expire permanently removes a participant whose grace period ran out
func (r *Room) expire(participantID string, token uint64) {
	r.mu.Lock()

	if r.closed || !r.supervisor.Claim(r.session.ID, participantID, token) {
		r.mu.Unlock()
		return
	}

	removal := r.session.Remove(participantID)
	if removal.Removed {
		r.metrics.GraceExpired()
		r.logger.Info().
			Str("participantId", participantID).
			Bool("voteDropped", removal.VoteDropped).
			Bool("creatorChanged", removal.CreatorChanged).
			Str("creatorId", r.session.CreatorID).
			Msg("participant removed after grace period")
	}

	if removal.Empty {
		r.closed = true
		r.mu.Unlock()
		r.onEmpty(r.session.ID)
		return
	}

	if removal.Removed {
		r.publishLocked()
	}
	r.mu.Unlock()
}

// publishLocked queues the current snapshot for every attached client (caller must hold lock)
func (r *Room) publishLocked() {
	r.queueEvent(domain.NewEvent(domain.EventSessionState, r.session.ID, r.session.Snapshot()))
}

// queueEvent adds an event to the broadcast queue
func (r *Room) queueEvent(event *domain.Event) {
	select {
	case r.events <- event:
	default:
		r.logger.Warn().Str("type", string(event.Type)).Msg("event queue full, dropping event")
	}
}

// eventLoop processes events and broadcasts to clients
func (r *Room) eventLoop() {
	for {
		select {
		case <-r.done:
			return
		case event := <-r.events:
			r.broadcastEvent(event)
		}
	}
}

// broadcastEvent encodes an event once and hands the bytes to the appropriate clients
func (r *Room) broadcastEvent(event *domain.Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		r.metrics.EncodeFailed(string(event.Type))
		r.logger.Error().Err(err).Str("type", string(event.Type)).Msg("failed to encode event")
		return
	}

	r.clientsMu.RLock()
	defer r.clientsMu.RUnlock()

	// If targeted, send only to that connection
	if event.Target != "" {
		if client, ok := r.clients[event.Target]; ok {
			if err := client.Send(frame); err != nil {
				r.logger.Debug().Err(err).Str("connectionId", event.Target).Msg("failed to send to client")
			}
		}
		return
	}

	for connectionID, client := range r.clients {
		if err := client.Send(frame); err != nil {
			r.logger.Debug().Err(err).Str("connectionId", connectionID).Msg("failed to send to client")
		}
	}

	if event.Type == domain.EventSessionState {
		r.metrics.SnapshotBroadcast(len(r.clients))
	}
}

// Close shuts down the room and its client connections
func (r *Room) Close() {
	r.mu.Lock()
	r.closed = true
	if r.stopped {
		r.mu.Unlock()
		return // Already closed
	}
	r.stopped = true
	close(r.done)
	r.mu.Unlock()

	r.clientsMu.Lock()
	for _, client := range r.clients {
		client.Close()
	}
	r.clients = make(map[string]ClientConnection)
	r.clientsMu.Unlock()
}
