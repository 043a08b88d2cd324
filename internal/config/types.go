// Package config resolves, parses, validates, and defaults jspeech configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by jspeech.
type Config struct {
	Wakeword  WakewordConfig
	Segmenter SegmenterConfig
	Audio     AudioConfig
	VAD       VADConfig
	Engine    EngineConfig
	Debug     DebugConfig
}

// WakewordConfig controls keyword spotting.
type WakewordConfig struct {
	Keywords      []string
	Sensitivities []float64
}

// SegmenterConfig controls utterance boundary detection.
type SegmenterConfig struct {
	// SpeechLength is the trailing-silence window in seconds that ends an utterance.
	SpeechLength float64
	// SilenceAfter is the quiet-frame count between silence notifications; 0 disables them.
	SilenceAfter int
	// PreRollFrames caps the pre-wake audio ring.
	PreRollFrames int
	// IncludePreRoll seeds new utterances with buffered pre-wake audio.
	IncludePreRoll bool
}

// SpeechDuration converts the configured trailing-silence window to a duration.
func (s SegmenterConfig) SpeechDuration() time.Duration {
	return time.Duration(s.SpeechLength * float64(time.Second))
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// VADConfig controls energy-based voice activity detection.
type VADConfig struct {
	SpeechThreshold  float64
	SilenceThreshold float64
	SmoothingFrames  int
}

// EngineConfig selects and configures the transcription backend.
type EngineConfig struct {
	Backend    string
	VoskURL    string
	WhisperURL string
	APIKey     string
	Model      string
	Language   string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	// AudioDump writes each completed utterance as a WAV file under the state dir.
	AudioDump bool
	// Verbose lowers the log level to debug.
	Verbose bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
