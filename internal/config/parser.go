package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse reads JSONC configuration content and overlays it on base.
//
// Comments and trailing commas are tolerated; unknown keys are errors so
// typos fail loudly instead of silently keeping a default.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, errors.New("config must be a JSONC object")
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapDecodeError(normalized, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return Config{}, nil, errors.New("multiple JSON values are not allowed")
		}
		return Config{}, nil, wrapDecodeError(normalized, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

// fileConfig mirrors Config with pointer fields so absent keys keep defaults.
type fileConfig struct {
	Wakeword  *fileWakeword  `json:"wakeword"`
	Segmenter *fileSegmenter `json:"segmenter"`
	Audio     *fileAudio     `json:"audio"`
	VAD       *fileVAD       `json:"vad"`
	Engine    *fileEngine    `json:"engine"`
	Debug     *fileDebug     `json:"debug"`
}

type fileWakeword struct {
	Keywords      []string  `json:"keywords"`
	Sensitivities []float64 `json:"sensitivities"`
}

type fileSegmenter struct {
	SpeechLength   *float64 `json:"speech_length"`
	SilenceAfter   *int     `json:"silence_after"`
	PreRollFrames  *int     `json:"pre_roll_frames"`
	IncludePreRoll *bool    `json:"include_pre_roll"`
}

type fileAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type fileVAD struct {
	SpeechThreshold  *float64 `json:"speech_threshold"`
	SilenceThreshold *float64 `json:"silence_threshold"`
	SmoothingFrames  *int     `json:"smoothing_frames"`
}

type fileEngine struct {
	Backend    *string `json:"backend"`
	VoskURL    *string `json:"vosk_url"`
	WhisperURL *string `json:"whisper_url"`
	APIKey     *string `json:"api_key"`
	Model      *string `json:"model"`
	Language   *string `json:"language"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump"`
	Verbose   *bool `json:"verbose"`
}

func (payload fileConfig) applyTo(cfg *Config) {
	if payload.Wakeword != nil {
		if payload.Wakeword.Keywords != nil {
			cfg.Wakeword.Keywords = payload.Wakeword.Keywords
		}
		if payload.Wakeword.Sensitivities != nil {
			cfg.Wakeword.Sensitivities = payload.Wakeword.Sensitivities
		}
	}
	if payload.Segmenter != nil {
		if payload.Segmenter.SpeechLength != nil {
			cfg.Segmenter.SpeechLength = *payload.Segmenter.SpeechLength
		}
		if payload.Segmenter.SilenceAfter != nil {
			cfg.Segmenter.SilenceAfter = *payload.Segmenter.SilenceAfter
		}
		if payload.Segmenter.PreRollFrames != nil {
			cfg.Segmenter.PreRollFrames = *payload.Segmenter.PreRollFrames
		}
		if payload.Segmenter.IncludePreRoll != nil {
			cfg.Segmenter.IncludePreRoll = *payload.Segmenter.IncludePreRoll
		}
	}
	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}
	if payload.VAD != nil {
		if payload.VAD.SpeechThreshold != nil {
			cfg.VAD.SpeechThreshold = *payload.VAD.SpeechThreshold
		}
		if payload.VAD.SilenceThreshold != nil {
			cfg.VAD.SilenceThreshold = *payload.VAD.SilenceThreshold
		}
		if payload.VAD.SmoothingFrames != nil {
			cfg.VAD.SmoothingFrames = *payload.VAD.SmoothingFrames
		}
	}
	if payload.Engine != nil {
		if payload.Engine.Backend != nil {
			cfg.Engine.Backend = strings.ToLower(strings.TrimSpace(*payload.Engine.Backend))
		}
		if payload.Engine.VoskURL != nil {
			cfg.Engine.VoskURL = *payload.Engine.VoskURL
		}
		if payload.Engine.WhisperURL != nil {
			cfg.Engine.WhisperURL = *payload.Engine.WhisperURL
		}
		if payload.Engine.APIKey != nil {
			cfg.Engine.APIKey = *payload.Engine.APIKey
		}
		if payload.Engine.Model != nil {
			cfg.Engine.Model = *payload.Engine.Model
		}
		if payload.Engine.Language != nil {
			cfg.Engine.Language = *payload.Engine.Language
		}
	}
	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.AudioDump = *payload.Debug.AudioDump
		}
		if payload.Debug.Verbose != nil {
			cfg.Debug.Verbose = *payload.Debug.Verbose
		}
	}
}

func wrapDecodeError(content string, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}

	line, col := lineColAt(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func lineColAt(content string, offset int64) (int, int) {
	line, col := 1, 1
	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
