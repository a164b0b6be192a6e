package repositories

import "context"

// Voice is one synthesis voice offered by a provider
type Voice struct {
	ID   string `json:"voice_id"`
	Name string `json:"name"`
}

// TextToSpeech abstracts speech synthesis providers. Failures are reported as
// domain errors of kind synthesis_service.
type TextToSpeech interface {
	// ListVoices returns the voices available to the configured account
	ListVoices(ctx context.Context) ([]Voice, error)
	// Synthesize renders text with the given voice and returns encoded audio
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}
