package stt

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/repositories"
)

type fakeGenerator struct {
	text      string
	err       error
	lastModel string
	lastParts []*genai.Part
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	if len(contents) > 0 {
		f.lastParts = contents[0].Parts
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestGeminiSpeechToText_TranscribeFile(t *testing.T) {
	fake := &fakeGenerator{text: "  can you fight?\n"}
	g := &GeminiSpeechToText{models: fake, model: defaultGeminiModel, logger: zaptest.NewLogger(t)}

	text, err := g.TranscribeFile(context.Background(), writeAudioFile(t, []byte("RIFF")), repositories.AudioConfig{Encoding: "LINEAR16"})
	if err != nil {
		t.Fatalf("TranscribeFile failed: %v", err)
	}

	if text != "can you fight?" {
		t.Errorf("Expected trimmed transcript, got %q", text)
	}

	if fake.lastModel != defaultGeminiModel {
		t.Errorf("Unexpected model %q", fake.lastModel)
	}

	if len(fake.lastParts) != 2 || fake.lastParts[1].InlineData == nil {
		t.Fatal("Expected prompt and inline audio parts")
	}

	if fake.lastParts[1].InlineData.MIMEType != "audio/wav" {
		t.Errorf("Unexpected MIME type %q", fake.lastParts[1].InlineData.MIMEType)
	}
}

func TestGeminiSpeechToText_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeGenerator
		want domain.ErrorKind
	}{
		{"no speech marker", &fakeGenerator{text: "NO_SPEECH"}, domain.ErrorKindNoSpeechDetected},
		{"blank answer", &fakeGenerator{text: "   "}, domain.ErrorKindNoSpeechDetected},
		{"provider error", &fakeGenerator{err: errors.New("quota exceeded")}, domain.ErrorKindTranscriptionService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GeminiSpeechToText{models: tt.fake, model: defaultGeminiModel, logger: zaptest.NewLogger(t)}
			_, err := g.TranscribeFile(context.Background(), writeAudioFile(t, []byte("RIFF")), repositories.AudioConfig{})
			if !domain.IsKind(err, tt.want) {
				t.Errorf("Expected kind %s, got %v", tt.want, err)
			}
		})
	}
}

func TestNewGeminiSpeechToText_RequiresKey(t *testing.T) {
	if _, err := NewGeminiSpeechToText(context.Background(), GeminiConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestMockSpeechToText(t *testing.T) {
	mock := NewMockSpeechToText(zaptest.NewLogger(t))
	ctx := context.Background()

	text, err := mock.TranscribeFile(ctx, writeAudioFile(t, []byte("tiny")), repositories.AudioConfig{})
	if err != nil || text != "Hey there" {
		t.Errorf("Unexpected result %q, %v", text, err)
	}

	_, err = mock.TranscribeFile(ctx, writeAudioFile(t, nil), repositories.AudioConfig{})
	if !domain.IsKind(err, domain.ErrorKindNoSpeechDetected) {
		t.Errorf("Expected kind %s, got %v", domain.ErrorKindNoSpeechDetected, err)
	}
}
