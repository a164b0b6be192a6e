package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/repositories"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	// noSpeechMarker is what the model is told to answer for silent audio
	noSpeechMarker = "NO_SPEECH"

	transcribePrompt = "Transcribe the speech in this audio verbatim. " +
		"Reply with the transcript only, no commentary. " +
		"If there is no intelligible speech, reply with " + noSpeechMarker + "."
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds configuration for the Gemini transcription adapter
type GeminiConfig struct {
	APIKey string // Required
	Model  string // Optional, defaults to gemini-2.0-flash
}

// GeminiSpeechToText implements SpeechToText by asking a Gemini model to
// transcribe inline audio
type GeminiSpeechToText struct {
	models contentGenerator
	model  string
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GeminiSpeechToText)(nil)

// NewGeminiSpeechToText creates a Gemini API backed transcriber
func NewGeminiSpeechToText(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	return &GeminiSpeechToText{models: client.Models, model: model, logger: logger}, nil
}

// TranscribeFile implements repositories.SpeechToText
func (g *GeminiSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	const op = "GeminiSpeechToText.TranscribeFile"

	audioData, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("failed to read audio file: %w", err))
	}

	g.logger.Info("Starting transcription",
		zap.Int("audioSize", len(audioData)),
		zap.String("model", g.model))

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(audioData, mimeTypeFor(config.Encoding)),
		},
	}}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", domain.NewError(domain.ErrorKindTranscriptionService, op, fmt.Errorf("gemini generate: %w", err))
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	transcript := strings.TrimSpace(sb.String())
	if transcript == "" || strings.EqualFold(transcript, noSpeechMarker) {
		return "", domain.NewError(domain.ErrorKindNoSpeechDetected, op, nil)
	}

	g.logger.Info("Transcription result", zap.String("transcription", transcript))
	return transcript, nil
}

func mimeTypeFor(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "FLAC":
		return "audio/flac"
	case "OGG_OPUS":
		return "audio/ogg"
	case "WEBM_OPUS":
		return "audio/webm"
	case "MP3":
		return "audio/mp3"
	default:
		return "audio/wav"
	}
}
