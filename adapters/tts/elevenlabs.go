package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultOutputFormat = "mp3_44100_128"         // MP3 plays directly in the browser client
	defaultModelID      = "eleven_monolingual_v1" // Default model ID
	defaultHTTPTimeout  = 60 * time.Second

	// maxErrorBody bounds how much of an error response is kept for logging
	maxErrorBody = 4 * 1024
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - ModelID: The model ID to use (default: "eleven_monolingual_v1")
// - OutputFormat: The output format (default: "mp3_44100_128")
// - Stability: Voice stability value between 0 and 1, sent as given (0 is valid)
// - Clarity: Voice clarity/similarity boost value between 0 and 1, sent as given (0 is valid)
// - HTTPTimeout: Upper bound for one HTTP exchange (default: 60s)
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
	HTTPTimeout  time.Duration
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	client       *http.Client
	logger       *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings ElevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoicesResponse struct {
	Voices []repositories.Voice `json:"voices"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must be positive, got %s", config.HTTPTimeout)
	}

	if config.APIBaseURL != "" {
		if _, err := url.ParseRequestURI(config.APIBaseURL); err != nil {
			return fmt.Errorf("invalid API base URL %q: %w", config.APIBaseURL, err)
		}
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := strings.TrimSuffix(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
		logger.Info("Using default output format", zap.String("outputFormat", outputFormat))
	}

	timeout := config.HTTPTimeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		modelID:      modelID,
		outputFormat: outputFormat,
		stability:    config.Stability,
		clarity:      config.Clarity,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// ListVoices retrieves available voices from Eleven Labs API
func (e *ElevenLabsTTS) ListVoices(ctx context.Context) ([]repositories.Voice, error) {
	const op = "ElevenLabsTTS.ListVoices"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiBaseURL+"/voices", nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("failed to execute HTTP request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, e.statusError(resp))
	}

	var voicesResponse elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResponse); err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("failed to decode response: %w", err))
	}

	e.logger.Info("Retrieved available voices", zap.Int("count", len(voicesResponse.Voices)))
	return voicesResponse.Voices, nil
}

// Synthesize converts text to speech using Eleven Labs API
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	const op = "ElevenLabsTTS.Synthesize"

	if strings.TrimSpace(text) == "" {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("text cannot be empty"))
	}
	if voiceID == "" {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("voice ID cannot be empty"))
	}

	e.logger.Info("Converting text to speech",
		zap.String("text", text),
		zap.String("voiceID", voiceID),
		zap.String("modelID", e.modelID))

	request := ElevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("failed to marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.apiBaseURL, url.PathEscape(voiceID), url.QueryEscape(e.outputFormat))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("failed to create HTTP request: %w", err))
	}

	// PCM formats require the audio/pcm accept header
	acceptHeader := "audio/mpeg"
	if strings.HasPrefix(e.outputFormat, "pcm") {
		acceptHeader = "audio/pcm"
	}
	httpReq.Header.Set("Accept", acceptHeader)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	e.logger.Debug("Sending request to Eleven Labs API", zap.String("url", endpoint))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("failed to execute HTTP request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, e.statusError(resp))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("error reading response body: %w", err))
	}
	if len(audio) == 0 {
		return nil, domain.NewError(domain.ErrorKindSynthesisService, op, fmt.Errorf("empty audio response"))
	}

	e.logger.Info("Successfully received audio from Eleven Labs API",
		zap.String("contentType", resp.Header.Get("Content-Type")),
		zap.Int("totalBytes", len(audio)))

	return audio, nil
}

func (e *ElevenLabsTTS) statusError(resp *http.Response) error {
	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e.logger.Error("Eleven Labs API returned error",
		zap.Int("statusCode", resp.StatusCode),
		zap.String("response", string(errorBody)))
	return fmt.Errorf("API returned error %d", resp.StatusCode)
}
