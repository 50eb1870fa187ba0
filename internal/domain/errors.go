package domain

import "errors"

// Domain errors
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrIDExhausted         = errors.New("failed to generate unique session id")
	ErrInvalidRole         = errors.New("invalid role")
	ErrVoteNotAllowed      = errors.New("vote value not allowed")
)
