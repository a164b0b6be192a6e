package repositories

import "context"

// SpeechToText abstracts speech recognition providers.
//
// Implementations report unrecognizable audio as a domain error of kind
// no_speech_detected and provider failures as transcription_service.
type SpeechToText interface {
	// TranscribeFile converts the audio stored at path to text
	TranscribeFile(ctx context.Context, path string, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"` // 0 lets the provider read it from the file header
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
