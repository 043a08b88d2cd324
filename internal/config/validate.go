package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if len(cfg.Wakeword.Keywords) == 0 {
		return nil, fmt.Errorf("wakeword.keywords must not be empty")
	}
	for i, keyword := range cfg.Wakeword.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return nil, fmt.Errorf("wakeword.keywords[%d] must not be blank", i)
		}
	}
	if len(cfg.Wakeword.Sensitivities) != len(cfg.Wakeword.Keywords) {
		return nil, fmt.Errorf("wakeword.sensitivities count %d does not match keyword count %d",
			len(cfg.Wakeword.Sensitivities), len(cfg.Wakeword.Keywords))
	}
	for i, sensitivity := range cfg.Wakeword.Sensitivities {
		if sensitivity < 0 || sensitivity > 1 {
			return nil, fmt.Errorf("wakeword.sensitivities[%d] must be within [0, 1]", i)
		}
	}

	if cfg.Segmenter.SpeechLength <= 0 {
		return nil, fmt.Errorf("segmenter.speech_length must be > 0")
	}
	if cfg.Segmenter.SilenceAfter < 0 {
		return nil, fmt.Errorf("segmenter.silence_after must be >= 0")
	}
	if cfg.Segmenter.PreRollFrames < 0 {
		return nil, fmt.Errorf("segmenter.pre_roll_frames must be >= 0")
	}
	if cfg.Segmenter.IncludePreRoll && cfg.Segmenter.PreRollFrames == 0 {
		warnings = append(warnings, Warning{Message: "segmenter.include_pre_roll is set but segmenter.pre_roll_frames is 0; no pre-wake audio will be kept"})
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}

	if cfg.VAD.SpeechThreshold <= 0 {
		return nil, fmt.Errorf("vad.speech_threshold must be > 0")
	}
	if cfg.VAD.SilenceThreshold <= 0 {
		return nil, fmt.Errorf("vad.silence_threshold must be > 0")
	}
	if cfg.VAD.SilenceThreshold > cfg.VAD.SpeechThreshold {
		return nil, fmt.Errorf("vad.silence_threshold must not exceed vad.speech_threshold")
	}
	if cfg.VAD.SmoothingFrames <= 0 {
		return nil, fmt.Errorf("vad.smoothing_frames must be > 0")
	}

	switch cfg.Engine.Backend {
	case "vosk":
		if strings.TrimSpace(cfg.Engine.VoskURL) == "" {
			return nil, fmt.Errorf("engine.vosk_url must not be empty when engine.backend=vosk")
		}
	case "whisper":
		if strings.TrimSpace(cfg.Engine.WhisperURL) == "" {
			return nil, fmt.Errorf("engine.whisper_url must not be empty when engine.backend=whisper")
		}
	case "none":
		warnings = append(warnings, Warning{Message: "engine.backend=none; completed utterances will carry no transcript"})
	default:
		return nil, fmt.Errorf("engine.backend must be one of: vosk, whisper, none")
	}

	return warnings, nil
}
