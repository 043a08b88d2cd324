package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsDefaults(t *testing.T) {
	cfg, warnings, err := Parse("", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Empty(t, warnings)

	cfg, _, err = Parse("   \n\t  ", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseOverlaysOnDefaults(t *testing.T) {
	content := `
{
  // two keywords, matching sensitivities
  "wakeword": {
    "keywords": ["jarvis", "computer"],
    "sensitivities": [0.5, 0.8],
  },
  "segmenter": {
    "speech_length": 1.2,
    "silence_after": 40,
    "include_pre_roll": true,
  },
  "engine": {
    "backend": "Whisper",
    "whisper_url": "http://127.0.0.1:9000/transcribe",
    "api_key": "secret",
  },
  "debug": { "audio_dump": true },
}
`

	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, []string{"jarvis", "computer"}, cfg.Wakeword.Keywords)
	require.Equal(t, []float64{0.5, 0.8}, cfg.Wakeword.Sensitivities)
	require.InDelta(t, 1.2, cfg.Segmenter.SpeechLength, 1e-9)
	require.Equal(t, 40, cfg.Segmenter.SilenceAfter)
	require.True(t, cfg.Segmenter.IncludePreRoll)
	require.Equal(t, "whisper", cfg.Engine.Backend)
	require.Equal(t, "http://127.0.0.1:9000/transcribe", cfg.Engine.WhisperURL)
	require.True(t, cfg.Debug.AudioDump)

	// Untouched sections keep defaults.
	require.Equal(t, Default().Audio, cfg.Audio)
	require.Equal(t, Default().VAD, cfg.VAD)
	require.Equal(t, 30, cfg.Segmenter.PreRollFrames)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, _, err := Parse(`{"wakewords": ["jarvis"]}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "wakewords")
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse(`["not", "an", "object"]`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")
}

func TestParseRejectsMultipleValues(t *testing.T) {
	_, _, err := Parse(`{"debug":{"audio_dump":true}}{"extra":1}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestParseReportsLineAndColumnOnTypeError(t *testing.T) {
	content := "{\n  \"segmenter\": {\n    \"speech_length\": \"fast\"\n  }\n}"
	_, _, err := Parse(content, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseRunsValidation(t *testing.T) {
	_, _, err := Parse(`{"wakeword": {"keywords": ["jarvis", "computer"]}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "sensitivities count")
}
