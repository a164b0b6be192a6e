package stt

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/repositories"
)

// MockSpeechToText is an offline implementation for local runs. It picks a
// canned utterance from the size of the audio file.
type MockSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeFile implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	const op = "MockSpeechToText.TranscribeFile"

	info, err := os.Stat(path)
	if err != nil {
		return "", domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("failed to stat audio file: %w", err))
	}

	s.logger.Info("Processing speech-to-text",
		zap.Int64("audioSize", info.Size()),
		zap.String("encoding", config.Encoding))

	switch size := info.Size(); {
	case size == 0:
		return "", domain.NewError(domain.ErrorKindNoSpeechDetected, op, nil)
	case size > 10000:
		return "Where is the harbor? I am lost.", nil
	case size > 5000:
		return "Can you help me out?", nil
	case size > 1000:
		return "Is there anyone strong enough to fight you?", nil
	default:
		return "Hey there", nil
	}
}
