package main

import (
	"bytes"
	"context"
	"math/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/santoryu/adapters/stt"
	"github.com/satriahrh/santoryu/adapters/tts"
	"github.com/satriahrh/santoryu/internal/api"
	"github.com/satriahrh/santoryu/internal/auth"
	"github.com/satriahrh/santoryu/internal/websocket"
	"github.com/satriahrh/santoryu/usecase"
)

func startRelay(t *testing.T, issuer *auth.Issuer) string {
	t.Helper()
	logger := zaptest.NewLogger(t)

	replies := usecase.NewReplyService(usecase.DefaultPhrasePool(), rand.New(rand.NewSource(1)))
	conversation := usecase.NewConversationService(
		stt.NewMockSpeechToText(logger),
		tts.NewMockTextToSpeech(logger),
		replies,
		usecase.ConversationConfig{TempDir: t.TempDir()},
		nil,
		logger,
	)
	hub := websocket.NewHub(conversation, replies, websocket.HubConfig{}, nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	api.InitRoutes(e, hub, api.RouteConfig{Issuer: issuer}, logger)
	server := httptest.NewServer(e)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestChatClientRoundTrip(t *testing.T) {
	issuer, err := auth.NewIssuer("test-secret", 0)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	wsURL := startRelay(t, issuer)

	dir := t.TempDir()
	input := filepath.Join(dir, "hello.wav")
	if err := os.WriteFile(input, bytes.Repeat([]byte{1}, 200), 0o600); err != nil {
		t.Fatalf("Failed to write audio: %v", err)
	}
	output := filepath.Join(dir, "reply.mp3")

	for _, binary := range []bool{false, true} {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		args := []string{input, "--server", wsURL, "--secret", "test-secret", "-o", output}
		if binary {
			args = append(args, "--binary")
		}
		cmd.SetArgs(args)

		if err := cmd.Execute(); err != nil {
			t.Fatalf("chatclient failed: %v", err)
		}

		if !strings.Contains(out.String(), "heard: Hey there") {
			t.Errorf("Expected the mock transcript in output, got %q", out.String())
		}

		info, err := os.Stat(output)
		if err != nil {
			t.Fatalf("Expected reply audio to be saved: %v", err)
		}
		if info.Size() == 0 {
			t.Error("Expected non-empty reply audio")
		}
	}
}

func TestChatClientRejectedWithoutToken(t *testing.T) {
	issuer, _ := auth.NewIssuer("test-secret", 0)
	wsURL := startRelay(t, issuer)

	input := filepath.Join(t.TempDir(), "hello.wav")
	if err := os.WriteFile(input, []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("Failed to write audio: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{input, "--server", wsURL})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected the connection to be rejected")
	}
}
