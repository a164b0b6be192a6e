package websocket

import (
	"encoding/base64"

	"github.com/satriahrh/santoryu/domain/entities"
)

// DoneSignal is the text frame that ends a turn
const DoneSignal = "DONE"

// MessageType defines the type of an outbound WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeTranscription MessageType = "transcription"
	MessageTypeError         MessageType = "error"
)

// TranscriptionMessage carries a successful turn back to the peer. The
// documented frame is {type, text, audio}; Transcript is an extension that
// clients must not depend on.
type TranscriptionMessage struct {
	Type       MessageType `json:"type"`
	Text       string      `json:"text"`  // reply text
	Audio      string      `json:"audio"` // base64 encoded reply audio
	Transcript string      `json:"transcript,omitempty"` // extension: what was heard
}

// ErrorMessage carries an in-character fault reply
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// NewTranscriptionMessage builds the result frame for a completed turn
func NewTranscriptionMessage(turn *entities.Turn) *TranscriptionMessage {
	return &TranscriptionMessage{
		Type:       MessageTypeTranscription,
		Text:       turn.ReplyText,
		Audio:      base64.StdEncoding.EncodeToString(turn.ReplyAudio),
		Transcript: turn.Transcription,
	}
}

// NewErrorMessage builds an error frame
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MessageTypeError,
		Message: message,
	}
}
