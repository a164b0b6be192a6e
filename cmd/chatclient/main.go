// Command chatclient sends one recorded turn to a running relay and saves the
// reply audio.
package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/satriahrh/santoryu/internal/auth"
)

type options struct {
	server  string
	output  string
	secret  string
	token   string
	binary  bool
	timeout time.Duration
}

type result struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Audio      string `json:"audio"`
	Transcript string `json:"transcript"`
	Message    string `json:"message"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "chatclient <audio.wav>",
		Short: "Send one spoken turn to the relay",
		Long: `Send one spoken turn to the relay.

The file is sent as a single base64 text frame followed by DONE.
The reply text is printed and the reply audio written to --output.

Examples:
  chatclient hello.wav
  chatclient hello.wav --server ws://localhost:8080/ws --secret $AUTH_SECRET
  chatclient hello.wav --binary -o reply.mp3`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.server, "server", "s", "ws://localhost:8080/ws", "relay WebSocket URL")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "reply.mp3", "where to write the reply audio")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "mint a token with this shared secret")
	cmd.Flags().StringVar(&opts.token, "token", "", "token to present, overrides --secret")
	cmd.Flags().BoolVar(&opts.binary, "binary", false, "send the audio as a binary frame")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "how long to wait for the reply")

	return cmd
}

func run(cmd *cobra.Command, path string, opts *options) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	token := opts.token
	if token == "" && opts.secret != "" {
		issuer, err := auth.NewIssuer(opts.secret, time.Hour)
		if err != nil {
			return err
		}
		if token, err = issuer.GenerateToken("chatclient"); err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}
	}

	wsURL, err := url.Parse(opts.server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if token != "" {
		q := wsURL.Query()
		q.Set("token", token)
		wsURL.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket connection failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket connection failed: %w", err)
	}
	defer conn.Close()

	if opts.binary {
		err = conn.WriteMessage(websocket.BinaryMessage, audio)
	} else {
		err = conn.WriteMessage(websocket.TextMessage, []byte(base64.StdEncoding.EncodeToString(audio)))
	}
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("DONE")); err != nil {
		return fmt.Errorf("failed to send turn boundary: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(opts.timeout))
	var res result
	if err := conn.ReadJSON(&res); err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}

	out := cmd.OutOrStdout()
	if res.Type == "error" {
		fmt.Fprintf(out, "error: %s\n", res.Message)
		return nil
	}

	fmt.Fprintf(out, "heard: %s\n", res.Transcript)
	fmt.Fprintf(out, "reply: %s\n", res.Text)

	replyAudio, err := base64.StdEncoding.DecodeString(res.Audio)
	if err != nil {
		return fmt.Errorf("failed to decode reply audio: %w", err)
	}
	if err := os.WriteFile(opts.output, replyAudio, 0o644); err != nil {
		return fmt.Errorf("failed to write reply audio: %w", err)
	}
	fmt.Fprintf(out, "saved %d bytes to %s\n", len(replyAudio), opts.output)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
