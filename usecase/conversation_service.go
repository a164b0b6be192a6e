package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/entities"
	"github.com/satriahrh/santoryu/domain/repositories"
	"github.com/satriahrh/santoryu/internal/metrics"
)

// ChunkMode controls how the accumulated chunks of a turn become one buffer
type ChunkMode string

const (
	// ChunkModeFirst decodes only the first chunk and discards the rest
	ChunkModeFirst ChunkMode = "first"
	// ChunkModeConcat decodes every chunk and joins the bytes in order
	ChunkModeConcat ChunkMode = "concat"
)

// DefaultProviderTimeout bounds each speech or synthesis call
const DefaultProviderTimeout = 15 * time.Second

// ConversationConfig tunes turn processing
type ConversationConfig struct {
	ChunkMode       ChunkMode
	ProviderTimeout time.Duration
	TempDir         string // "" uses os.TempDir
	Audio           repositories.AudioConfig
}

// ConversationService runs one turn: decode, transcribe, pick a reply, synthesize
type ConversationService struct {
	speechToText repositories.SpeechToText
	textToSpeech repositories.TextToSpeech
	replies      *ReplyService
	config       ConversationConfig
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewConversationService creates a new conversation service. m may be nil.
func NewConversationService(
	stt repositories.SpeechToText,
	tts repositories.TextToSpeech,
	replies *ReplyService,
	config ConversationConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ConversationService {
	if config.ChunkMode == "" {
		config.ChunkMode = ChunkModeFirst
	}
	if config.ProviderTimeout <= 0 {
		config.ProviderTimeout = DefaultProviderTimeout
	}
	return &ConversationService{
		speechToText: stt,
		textToSpeech: tts,
		replies:      replies,
		config:       config,
		metrics:      m,
		logger:       logger,
	}
}

// Process turns the chunks accumulated since the last boundary into a reply.
// Every error returned carries a domain.ErrorKind.
func (s *ConversationService) Process(ctx context.Context, chunks []string) (turn *entities.Turn, err error) {
	const op = "ConversationService.Process"
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while processing turn", zap.Any("panic", r), zap.Stack("stack"))
			turn = nil
			err = domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("panic: %v", r))
		}

		outcome := "ok"
		if err != nil {
			outcome = string(domain.KindOf(err))
		}
		s.metrics.ObserveTurn(outcome, time.Since(started))
	}()

	if len(chunks) == 0 {
		return nil, domain.NewError(domain.ErrorKindEmptyInput, op, nil)
	}

	audio, err := s.decode(chunks)
	if err != nil {
		return nil, err
	}

	turn = entities.NewTurn(audio)
	s.logger.Info("Processing turn",
		zap.String("turnID", turn.ID),
		zap.Int("chunks", len(chunks)),
		zap.Int("audioSize", len(audio)))

	text, err := s.transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	turn.Transcription = text

	s.logger.Info("Transcription completed", zap.String("turnID", turn.ID), zap.String("text", text))

	turn.ReplyText = s.replies.Select(text)

	voiceID, replyAudio, err := s.synthesize(ctx, turn.ReplyText)
	if err != nil {
		return nil, err
	}
	turn.VoiceID = voiceID
	turn.ReplyAudio = replyAudio
	turn.Complete()

	s.logger.Info("Turn completed",
		zap.String("turnID", turn.ID),
		zap.String("reply", turn.ReplyText),
		zap.String("voiceID", voiceID),
		zap.Int("replyAudioSize", len(replyAudio)),
		zap.Duration("duration", turn.Duration))

	return turn, nil
}

func (s *ConversationService) decode(chunks []string) ([]byte, error) {
	const op = "ConversationService.decode"

	if s.config.ChunkMode != ChunkModeConcat {
		if len(chunks) > 1 {
			s.logger.Warn("Discarding extra audio chunks", zap.Int("discarded", len(chunks)-1))
		}
		audio, err := base64.StdEncoding.DecodeString(chunks[0])
		if err != nil {
			return nil, domain.NewError(domain.ErrorKindAudioDecode, op, fmt.Errorf("failed to decode audio data: %w", err))
		}
		return audio, nil
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		audio, err := base64.StdEncoding.DecodeString(chunk)
		if err != nil {
			return nil, domain.NewError(domain.ErrorKindAudioDecode, op, fmt.Errorf("failed to decode chunk %d: %w", i, err))
		}
		buf.Write(audio)
	}
	return buf.Bytes(), nil
}

func (s *ConversationService) transcribe(ctx context.Context, audio []byte) (string, error) {
	const op = "ConversationService.transcribe"

	f, err := os.CreateTemp(s.config.TempDir, "turn-*.wav")
	if err != nil {
		return "", domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("failed to create temp file: %w", err))
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("Failed to remove temp audio file", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return "", domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("failed to close temp file: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	defer cancel()

	started := time.Now()
	text, err := s.speechToText.TranscribeFile(callCtx, path, s.config.Audio)
	s.metrics.ObserveProvider("transcribe", time.Since(started))
	if err != nil {
		return "", domain.Wrap(domain.ErrorKindTranscriptionService, op, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewError(domain.ErrorKindEmptyTranscription, op, nil)
	}
	return text, nil
}

func (s *ConversationService) synthesize(ctx context.Context, text string) (string, []byte, error) {
	const op = "ConversationService.synthesize"

	listCtx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	started := time.Now()
	voices, err := s.textToSpeech.ListVoices(listCtx)
	s.metrics.ObserveProvider("list_voices", time.Since(started))
	cancel()
	if err != nil {
		return "", nil, domain.Wrap(domain.ErrorKindSynthesisService, op, err)
	}
	if len(voices) == 0 {
		return "", nil, domain.NewError(domain.ErrorKindNoVoicesAvailable, op, nil)
	}

	voiceID := voices[0].ID

	synthCtx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	defer cancel()

	started = time.Now()
	audio, err := s.textToSpeech.Synthesize(synthCtx, text, voiceID)
	s.metrics.ObserveProvider("synthesize", time.Since(started))
	if err != nil {
		return "", nil, domain.Wrap(domain.ErrorKindSynthesisService, op, err)
	}

	return voiceID, audio, nil
}
