package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/repositories"
)

// MockVoiceID is the single voice offered by MockTextToSpeech
const MockVoiceID = "mock-swordsman"

// MockTextToSpeech is an offline implementation for local runs
type MockTextToSpeech struct {
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		logger: logger,
	}
}

// ListVoices implements repositories.TextToSpeech
func (t *MockTextToSpeech) ListVoices(ctx context.Context) ([]repositories.Voice, error) {
	return []repositories.Voice{{ID: MockVoiceID, Name: "Mock Swordsman"}}, nil
}

// Synthesize implements repositories.TextToSpeech
func (t *MockTextToSpeech) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, "MockTextToSpeech.Synthesize", fmt.Errorf("text cannot be empty"))
	}

	t.logger.Info("Processing text-to-speech",
		zap.String("text", text),
		zap.String("voice", voiceID))

	// Mock audio data sized by text length
	mockAudio := make([]byte, len(text)*100)
	for i := range mockAudio {
		mockAudio[i] = byte(i % 256)
	}

	return mockAudio, nil
}
