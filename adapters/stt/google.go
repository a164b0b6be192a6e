package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/repositories"
)

// recognizer is the slice of the Google Cloud Speech client this adapter uses
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client recognizer
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Google Cloud Speech client using application
// default credentials
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return newGoogleSpeechToText(client, logger), nil
}

func newGoogleSpeechToText(client recognizer, logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{client: client, logger: logger}
}

// TranscribeFile converts the audio file at path to text (non-streaming)
func (g *GoogleSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	const op = "GoogleSpeechToText.TranscribeFile"

	audioData, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewError(domain.ErrorKindUnexpected, op, fmt.Errorf("failed to read audio file: %w", err))
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", domain.NewError(domain.ErrorKindTranscriptionService, op, err)
	}

	language := config.Language
	if language == "" {
		language = "en-US"
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	// WAV and FLAC carry the sample rate in their header
	if config.SampleRate > 0 {
		recognitionConfig.SampleRateHertz = int32(config.SampleRate)
	}

	g.logger.Info("Starting transcription",
		zap.Int("audioSize", len(audioData)),
		zap.String("encoding", config.Encoding),
		zap.String("language", language))

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", domain.NewError(domain.ErrorKindTranscriptionService, op, fmt.Errorf("could not request results: %w", err))
	}

	transcript, confidence, found := bestAlternative(resp)
	if !found {
		return "", domain.NewError(domain.ErrorKindNoSpeechDetected, op, nil)
	}

	g.logger.Info("Transcription result",
		zap.String("transcription", transcript),
		zap.Float64("confidence", confidence))

	return transcript, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// bestAlternative joins the top alternative of every result. found is false
// when the provider returned no alternatives at all.
func bestAlternative(resp *speechpb.RecognizeResponse) (transcript string, confidence float64, found bool) {
	if resp == nil {
		return "", 0, false
	}

	var parts []string
	var total float64
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		parts = append(parts, strings.TrimSpace(alt.Transcript))
		total += float64(alt.Confidence)
	}

	if len(parts) == 0 {
		return "", 0, false
	}
	return strings.Join(parts, " "), total / float64(len(parts)), true
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
