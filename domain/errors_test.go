package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"plain error", base, ErrorKindUnexpected},
		{"domain error", NewError(ErrorKindNoSpeechDetected, "op", base), ErrorKindNoSpeechDetected},
		{"wrapped domain error", fmt.Errorf("outer: %w", NewError(ErrorKindSynthesisService, "", nil)), ErrorKindSynthesisService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := NewError(ErrorKindNoSpeechDetected, "stt", nil)

	err := Wrap(ErrorKindTranscriptionService, "turn", inner)
	if !IsKind(err, ErrorKindNoSpeechDetected) {
		t.Errorf("Expected kind %s to survive, got %s", ErrorKindNoSpeechDetected, KindOf(err))
	}

	err = Wrap(ErrorKindTranscriptionService, "turn", errors.New("dial tcp: refused"))
	if !IsKind(err, ErrorKindTranscriptionService) {
		t.Errorf("Expected kind %s, got %s", ErrorKindTranscriptionService, KindOf(err))
	}

	if Wrap(ErrorKindUnexpected, "turn", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("connection reset")
	err := NewError(ErrorKindSynthesisService, "ElevenLabsTTS.Synthesize", base)

	if !errors.Is(err, base) {
		t.Error("Expected errors.Is to reach the wrapped error")
	}

	want := "ElevenLabsTTS.Synthesize: synthesis_service: connection reset"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
