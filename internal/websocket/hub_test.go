package websocket

import (
	"context"
	"encoding/base64"
	"errors"
	"math/rand"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/entities"
	"github.com/satriahrh/santoryu/internal/metrics"
	"github.com/satriahrh/santoryu/usecase"
)

// fakeProcessor records every turn and answers with a fixed result
type fakeProcessor struct {
	mu    sync.Mutex
	calls [][]string

	reply    string
	err      error
	panicMsg string
}

func (p *fakeProcessor) Process(ctx context.Context, chunks []string) (*entities.Turn, error) {
	p.mu.Lock()
	p.calls = append(p.calls, chunks)
	p.mu.Unlock()

	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.err != nil {
		return nil, p.err
	}

	turn := entities.NewTurn([]byte(strings.Join(chunks, "")))
	turn.Transcription = "heard"
	turn.ReplyText = p.reply
	turn.ReplyAudio = []byte("reply-audio")
	turn.Complete()
	return turn, nil
}

func (p *fakeProcessor) Calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.calls...)
}

type testServer struct {
	hub     *Hub
	metrics *metrics.Metrics
	server  *httptest.Server
	cancel  context.CancelFunc
}

func setupTestServer(t *testing.T, processor TurnProcessor, config HubConfig) *testServer {
	t.Helper()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	replies := usecase.NewReplyService(usecase.DefaultPhrasePool(), rand.New(rand.NewSource(1)))
	hub := NewHub(processor, replies, config, m, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &testServer{hub: hub, metrics: m, server: server, cancel: cancel}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func writeText(t *testing.T, ws *websocket.Conn, text string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]string {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame map[string]string
	if err := ws.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return frame
}

func isConfusion(message string) bool {
	for _, phrase := range usecase.DefaultPhrasePool().Phrases(entities.CategoryConfusion) {
		if phrase == message {
			return true
		}
	}
	return false
}

func TestEmptyTurnRepliesWithConfusion(t *testing.T) {
	processor := &fakeProcessor{reply: "unused"}
	s := setupTestServer(t, processor, HubConfig{})
	ws := s.dial(t)

	writeText(t, ws, DoneSignal)
	frame := readFrame(t, ws)

	if frame["type"] != "error" {
		t.Fatalf("Expected error frame, got %v", frame)
	}
	if !isConfusion(frame["message"]) {
		t.Errorf("Expected a confusion phrase, got %q", frame["message"])
	}
	if len(processor.Calls()) != 0 {
		t.Error("Expected the processor not to be invoked")
	}
}

func TestTurnSuccessClearsAccumulator(t *testing.T) {
	processor := &fakeProcessor{reply: "Hmph, what do you want?"}
	s := setupTestServer(t, processor, HubConfig{TurnTimeout: time.Second})
	ws := s.dial(t)

	writeText(t, ws, "QUJD")
	if err := ws.WriteMessage(websocket.BinaryMessage, []byte("raw")); err != nil {
		t.Fatalf("Failed to write binary frame: %v", err)
	}
	writeText(t, ws, DoneSignal)

	frame := readFrame(t, ws)
	if frame["type"] != "transcription" {
		t.Fatalf("Expected transcription frame, got %v", frame)
	}
	if frame["text"] != "Hmph, what do you want?" {
		t.Errorf("Unexpected reply text %q", frame["text"])
	}
	if frame["audio"] != base64.StdEncoding.EncodeToString([]byte("reply-audio")) {
		t.Errorf("Unexpected reply audio %q", frame["audio"])
	}
	if frame["transcript"] != "heard" {
		t.Errorf("Unexpected transcript %q", frame["transcript"])
	}

	calls := processor.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(calls))
	}
	expected := []string{"QUJD", base64.StdEncoding.EncodeToString([]byte("raw"))}
	if len(calls[0]) != 2 || calls[0][0] != expected[0] || calls[0][1] != expected[1] {
		t.Errorf("Expected chunks %v, got %v", expected, calls[0])
	}

	// a second boundary finds nothing left over
	writeText(t, ws, DoneSignal)
	frame = readFrame(t, ws)
	if frame["type"] != "error" || !isConfusion(frame["message"]) {
		t.Errorf("Expected confusion after an emptied accumulator, got %v", frame)
	}
	if len(processor.Calls()) != 1 {
		t.Error("Expected the processor not to run for an empty turn")
	}

	if got := testutil.ToFloat64(s.metrics.FramesReceived.WithLabelValues("done")); got != 2 {
		t.Errorf("Expected 2 done frames, got %v", got)
	}
}

func TestTurnFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"transcription service", domain.NewError(domain.ErrorKindTranscriptionService, "stt", errors.New("503")), usecase.FaultCommunication},
		{"synthesis service", domain.NewError(domain.ErrorKindSynthesisService, "tts", errors.New("quota")), usecase.FaultNotRight},
		{"decode", domain.NewError(domain.ErrorKindAudioDecode, "decode", nil), usecase.FaultFocus},
		{"untyped", errors.New("boom"), usecase.FaultNotRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, &fakeProcessor{err: tt.err}, HubConfig{})
			ws := s.dial(t)

			writeText(t, ws, "QUJD")
			writeText(t, ws, DoneSignal)

			frame := readFrame(t, ws)
			if frame["type"] != "error" || frame["message"] != tt.expected {
				t.Errorf("Expected error %q, got %v", tt.expected, frame)
			}
		})
	}
}

func TestTurnNoSpeechRepliesWithConfusion(t *testing.T) {
	processor := &fakeProcessor{err: domain.NewError(domain.ErrorKindNoSpeechDetected, "stt", nil)}
	s := setupTestServer(t, processor, HubConfig{})
	ws := s.dial(t)

	writeText(t, ws, "QUJD")
	writeText(t, ws, DoneSignal)

	frame := readFrame(t, ws)
	if frame["type"] != "error" || !isConfusion(frame["message"]) {
		t.Errorf("Expected a confusion phrase, got %v", frame)
	}
}

func TestPanicIsRecoveredAndLoopContinues(t *testing.T) {
	processor := &fakeProcessor{panicMsg: "provider exploded"}
	s := setupTestServer(t, processor, HubConfig{})
	ws := s.dial(t)

	writeText(t, ws, "QUJD")
	writeText(t, ws, DoneSignal)

	frame := readFrame(t, ws)
	if frame["type"] != "error" || frame["message"] != usecase.FaultWentWrong {
		t.Fatalf("Expected %q, got %v", usecase.FaultWentWrong, frame)
	}

	writeText(t, ws, DoneSignal)
	frame = readFrame(t, ws)
	if frame["type"] != "error" || !isConfusion(frame["message"]) {
		t.Errorf("Expected the connection to survive with an empty accumulator, got %v", frame)
	}
}

func TestAccumulatorOverflow(t *testing.T) {
	processor := &fakeProcessor{reply: "next"}
	s := setupTestServer(t, processor, HubConfig{MaxSessionBytes: 8})
	ws := s.dial(t)

	writeText(t, ws, "AAAA")
	writeText(t, ws, "BBBBBBBB")

	frame := readFrame(t, ws)
	if frame["type"] != "error" || frame["message"] != usecase.FaultFocus {
		t.Fatalf("Expected %q, got %v", usecase.FaultFocus, frame)
	}

	// the rest of the overflowed utterance is dropped and its DONE is silent
	writeText(t, ws, "CCCC")
	writeText(t, ws, DoneSignal)

	// an empty turn proves nothing was queued for the overflowed one
	writeText(t, ws, DoneSignal)
	frame = readFrame(t, ws)
	if !isConfusion(frame["message"]) {
		t.Fatalf("Expected confusion for the empty turn, got %v", frame)
	}
	if len(processor.Calls()) != 0 {
		t.Fatalf("Expected the processor not to be invoked, got %v", processor.Calls())
	}

	writeText(t, ws, "QUJD")
	writeText(t, ws, DoneSignal)
	frame = readFrame(t, ws)
	if frame["type"] != "transcription" || frame["text"] != "next" {
		t.Fatalf("Expected a transcription for the next turn, got %v", frame)
	}

	calls := processor.Calls()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0] != "QUJD" {
		t.Errorf("Expected a single turn with [QUJD], got %v", calls)
	}
	if got := testutil.ToFloat64(s.metrics.TurnsTotal.WithLabelValues(string(domain.ErrorKindAudioTooLarge))); got != 1 {
		t.Errorf("Expected 1 audio_too_large turn, got %v", got)
	}
	if got := testutil.ToFloat64(s.metrics.TurnsTotal.WithLabelValues(string(domain.ErrorKindEmptyInput))); got != 1 {
		t.Errorf("Expected 1 empty_input turn, got %v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met within timeout")
}

func TestHubTracksClientsAndShutsDown(t *testing.T) {
	s := setupTestServer(t, &fakeProcessor{reply: "ok"}, HubConfig{})

	first := s.dial(t)
	s.dial(t)
	waitFor(t, func() bool { return s.hub.ActiveClients() == 2 })

	if got := testutil.ToFloat64(s.metrics.ConnectionsTotal); got != 2 {
		t.Errorf("Expected 2 connections, got %v", got)
	}

	first.Close()
	waitFor(t, func() bool { return s.hub.ActiveClients() == 1 })

	s.cancel()
	waitFor(t, func() bool { return s.hub.ActiveClients() == 0 })

	if got := testutil.ToFloat64(s.metrics.ActiveConnections); got != 0 {
		t.Errorf("Expected no active connections after shutdown, got %v", got)
	}
}
