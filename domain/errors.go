package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures a conversational turn can end with.
type ErrorKind string

const (
	ErrorKindEmptyInput           ErrorKind = "empty_input"
	ErrorKindAudioDecode          ErrorKind = "audio_decode"
	ErrorKindAudioTooLarge        ErrorKind = "audio_too_large"
	ErrorKindNoSpeechDetected     ErrorKind = "no_speech_detected"
	ErrorKindTranscriptionService ErrorKind = "transcription_service"
	ErrorKindEmptyTranscription   ErrorKind = "empty_transcription"
	ErrorKindNoVoicesAvailable    ErrorKind = "no_voices_available"
	ErrorKindSynthesisService     ErrorKind = "synthesis_service"
	ErrorKindUnexpected           ErrorKind = "unexpected"
	ErrorKindConnectionFault      ErrorKind = "connection_fault"
)

// Error carries an ErrorKind through the turn pipeline.
type Error struct {
	Kind ErrorKind
	Op   string // operation name, ex: "ConversationService.transcribe"
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap tags err with kind unless err already carries a kind of its own.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind carried by err. Errors without one are unexpected.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
