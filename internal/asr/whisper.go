package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/simrit1/JSpeechRecognizer/internal/audio"
)

// WhisperConfig controls the batch HTTP transcription engine.
type WhisperConfig struct {
	// URL is the transcription endpoint, e.g.
	// https://api.openai.com/v1/audio/transcriptions or a local server.
	URL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model is the model form field; default whisper-1.
	Model string
	// Language is an optional language hint form field.
	Language string
	// SampleRate of the PCM segment; default 16000.
	SampleRate int
	// Timeout bounds the whole request; default 30s.
	Timeout time.Duration
}

// Whisper posts the completed segment as a WAV multipart upload to a
// Whisper-compatible REST endpoint and reads back `{"text": ...}`.
type Whisper struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisper validates config and builds the engine.
func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("whisper endpoint URL is empty")
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Whisper{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Transcribe uploads the segment and returns the recognized text.
func (w *Whisper) Transcribe(ctx context.Context, segment [][]byte) (string, error) {
	pcm := bytes.Join(segment, nil)
	if len(pcm) == 0 {
		return "", errors.New("segment contains no audio")
	}
	wav := audio.EncodeWAV(pcm, w.cfg.SampleRate, 1)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "segment.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("write audio payload: %w", err)
	}
	if err := form.WriteField("model", w.cfg.Model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if w.cfg.Language != "" {
		if err := form.WriteField("language", w.cfg.Language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if w.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post transcription request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
