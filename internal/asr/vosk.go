package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// VoskConfig controls the vosk-server websocket engine.
type VoskConfig struct {
	// URL is the websocket endpoint, e.g. ws://127.0.0.1:2700.
	URL string
	// SampleRate announced in the initial config message; default 16000.
	SampleRate int
	// DialTimeout bounds the websocket handshake; default 3s.
	DialTimeout time.Duration
	// ResultTimeout bounds the wait for the final result after EOF; default 10s.
	ResultTimeout time.Duration
	// OnPartial receives interim hypotheses as the server produces them.
	OnPartial func(text string)
}

// Vosk streams one segment per recognition over the vosk-server
// websocket protocol: a JSON config message, binary PCM frames, an EOF
// marker, with `{"partial": ...}` and `{"text": ...}` results coming back.
type Vosk struct {
	cfg    VoskConfig
	dialer *websocket.Dialer
}

// NewVosk validates config and builds the engine.
func NewVosk(cfg VoskConfig) (*Vosk, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("vosk endpoint URL is empty")
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.ResultTimeout <= 0 {
		cfg.ResultTimeout = 10 * time.Second
	}
	return &Vosk{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
	}, nil
}

// voskResult is one server message; partial and text are mutually exclusive.
type voskResult struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
}

// Transcribe replays the segment over a fresh websocket connection and
// assembles the committed result segments.
func (v *Vosk) Transcribe(ctx context.Context, segment [][]byte) (string, error) {
	conn, _, err := v.dialer.DialContext(ctx, v.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("dial vosk %q: %w", v.cfg.URL, err)
	}
	defer conn.Close()

	configMsg := fmt.Sprintf(`{"config": {"sample_rate": %d}}`, v.cfg.SampleRate)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return "", fmt.Errorf("send vosk config: %w", err)
	}

	var (
		mu      sync.Mutex
		finals  []string
		recvErr error
	)
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				mu.Lock()
				recvErr = rerr
				mu.Unlock()
				return
			}
			var result voskResult
			if jerr := json.Unmarshal(data, &result); jerr != nil {
				continue
			}
			if result.Text != "" {
				mu.Lock()
				finals = append(finals, result.Text)
				mu.Unlock()
				continue
			}
			if result.Partial != "" && v.cfg.OnPartial != nil {
				v.cfg.OnPartial(result.Partial)
			}
		}
	}()

	for _, frame := range segment {
		if len(frame) == 0 {
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return "", fmt.Errorf("send audio frame: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", fmt.Errorf("send eof marker: %w", err)
	}

	// The server flushes its final result and closes; bound the wait.
	select {
	case <-recvDone:
	case <-time.After(v.cfg.ResultTimeout):
		_ = conn.Close()
		<-recvDone
	case <-ctx.Done():
		_ = conn.Close()
		<-recvDone
		return "", ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	text := strings.Join(finals, " ")
	if text == "" && recvErr != nil && !websocket.IsCloseError(recvErr, websocket.CloseNormalClosure) {
		return "", fmt.Errorf("receive vosk results: %w", recvErr)
	}
	return text, nil
}
