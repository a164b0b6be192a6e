package entities

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one exchange: the caller's audio in, the persona's reply audio out
type Turn struct {
	ID            string        `json:"id"`
	Audio         []byte        `json:"-"`
	Transcription string        `json:"transcription"`
	ReplyText     string        `json:"reply_text"`
	VoiceID       string        `json:"voice_id"`
	ReplyAudio    []byte        `json:"-"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// NewTurn starts a turn over decoded audio
func NewTurn(audio []byte) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Audio:     audio,
		StartedAt: time.Now(),
	}
}

// Complete stamps the turn duration
func (t *Turn) Complete() {
	t.Duration = time.Since(t.StartedAt)
}
