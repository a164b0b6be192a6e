package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/santoryu/domain"
)

// SessionState represents the lifecycle state of a connection session
type SessionState string

const (
	SessionStateOpen       SessionState = "open"
	SessionStateProcessing SessionState = "processing"
	SessionStateClosed     SessionState = "closed"
)

// DefaultMaxAccumulatedBytes caps the encoded audio a session buffers for one turn
const DefaultMaxAccumulatedBytes = 10 * 1024 * 1024

// ErrSessionClosed is returned when a closed session is used
var ErrSessionClosed = errors.New("session is closed")

// ErrChunkDropped is returned for chunks that arrive after the turn overflowed
var ErrChunkDropped = errors.New("chunk dropped after overflow")

// Session holds the per-connection audio accumulator between turn boundaries.
// A Session is owned by exactly one connection goroutine and is not safe for
// concurrent use.
type Session struct {
	ID         string       `json:"id"`
	RemoteAddr string       `json:"remote_addr"`
	CreatedAt  time.Time    `json:"created_at"`
	State      SessionState `json:"state"`

	chunks   []string
	size     int
	maxBytes int
	turns    int

	// set by an overflow, cleared at the next turn boundary
	overflowed bool
}

// NewSession creates an open session. A non-positive maxBytes selects
// DefaultMaxAccumulatedBytes.
func NewSession(remoteAddr string, maxBytes int) *Session {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAccumulatedBytes
	}
	return &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
		State:      SessionStateOpen,
		chunks:     make([]string, 0),
		maxBytes:   maxBytes,
	}
}

// Append adds one encoded audio chunk to the accumulator. When the chunk would
// push the accumulator over its cap the accumulator is cleared, the session is
// marked overflowed and an audio_too_large error is returned. Chunks appended
// while overflowed are dropped with ErrChunkDropped until the next turn
// boundary.
func (s *Session) Append(chunk string) error {
	if s.State == SessionStateClosed {
		return ErrSessionClosed
	}

	if s.overflowed {
		return ErrChunkDropped
	}

	if s.size+len(chunk) > s.maxBytes {
		s.reset()
		s.overflowed = true
		return domain.NewError(domain.ErrorKindAudioTooLarge, "Session.Append", nil)
	}

	s.chunks = append(s.chunks, chunk)
	s.size += len(chunk)
	return nil
}

// TakeChunks marks a turn boundary. It hands over the accumulated chunks and
// leaves the accumulator empty. An empty accumulator yields an empty_input
// error and the session stays open. A turn that overflowed yields an
// audio_too_large error and clears the overflow.
func (s *Session) TakeChunks() ([]string, error) {
	if s.State == SessionStateClosed {
		return nil, ErrSessionClosed
	}

	if s.overflowed {
		s.overflowed = false
		s.reset()
		return nil, domain.NewError(domain.ErrorKindAudioTooLarge, "Session.TakeChunks", nil)
	}

	if len(s.chunks) == 0 {
		return nil, domain.NewError(domain.ErrorKindEmptyInput, "Session.TakeChunks", nil)
	}

	chunks := s.chunks
	s.reset()
	s.State = SessionStateProcessing
	s.turns++
	return chunks, nil
}

// FinishTurn returns a processing session to the open state
func (s *Session) FinishTurn() {
	if s.State == SessionStateProcessing {
		s.State = SessionStateOpen
	}
}

// Close releases the accumulator. Closing twice is a no-op.
func (s *Session) Close() {
	s.State = SessionStateClosed
	s.overflowed = false
	s.chunks = nil
	s.size = 0
}

// Overflowed reports whether the current turn went over the cap
func (s *Session) Overflowed() bool {
	return s.overflowed
}

// ChunkCount returns the number of chunks waiting for the next turn boundary
func (s *Session) ChunkCount() int {
	return len(s.chunks)
}

// Size returns the accumulated encoded bytes
func (s *Session) Size() int {
	return s.size
}

// Turns returns how many turns the session has started
func (s *Session) Turns() int {
	return s.turns
}

func (s *Session) reset() {
	s.chunks = make([]string, 0)
	s.size = 0
}
