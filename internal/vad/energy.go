package vad

import (
	"errors"
	"fmt"
	"math"
)

// EnergyConfig controls the RMS energy classifier.
type EnergyConfig struct {
	// SpeechThreshold is the normalized RMS level ([0..1]) at or above
	// which a frame counts toward speech.
	SpeechThreshold float64
	// SilenceThreshold is the level below which a frame counts toward
	// silence; keeping it under SpeechThreshold gives hysteresis.
	SilenceThreshold float64
	// SmoothingFrames is the size of the rolling RMS window.
	SmoothingFrames int
}

// DefaultEnergyConfig returns thresholds suited for 16kHz mono s16 frames.
func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		SpeechThreshold:  0.015,
		SilenceThreshold: 0.008,
		SmoothingFrames:  5,
	}
}

// Energy classifies frames by smoothed RMS level with hysteresis, so a
// single quiet frame inside a word does not flip the verdict.
type Energy struct {
	cfg EnergyConfig

	history []float64
	index   int
	filled  int

	inSpeech bool
}

// NewEnergy validates the config and builds the classifier.
func NewEnergy(cfg EnergyConfig) (*Energy, error) {
	if cfg.SpeechThreshold <= 0 {
		return nil, fmt.Errorf("speech threshold must be > 0, got %v", cfg.SpeechThreshold)
	}
	if cfg.SilenceThreshold <= 0 || cfg.SilenceThreshold > cfg.SpeechThreshold {
		return nil, fmt.Errorf("silence threshold must be in (0, %v], got %v", cfg.SpeechThreshold, cfg.SilenceThreshold)
	}
	if cfg.SmoothingFrames <= 0 {
		return nil, fmt.Errorf("smoothing frames must be > 0, got %d", cfg.SmoothingFrames)
	}
	return &Energy{
		cfg:     cfg,
		history: make([]float64, cfg.SmoothingFrames),
	}, nil
}

// IsSpeech classifies one little-endian s16 PCM frame.
func (e *Energy) IsSpeech(frame []byte) (bool, error) {
	if len(frame) < 2 {
		return false, errors.New("frame too short for s16 samples")
	}

	level := rms(frame)

	e.history[e.index] = level
	e.index = (e.index + 1) % len(e.history)
	if e.filled < len(e.history) {
		e.filled++
	}

	var sum float64
	for i := 0; i < e.filled; i++ {
		sum += e.history[i]
	}
	smoothed := sum / float64(e.filled)

	if e.inSpeech {
		if smoothed < e.cfg.SilenceThreshold {
			e.inSpeech = false
		}
	} else if smoothed >= e.cfg.SpeechThreshold {
		e.inSpeech = true
	}
	return e.inSpeech, nil
}

// Reset clears smoothing and hysteresis state between sessions.
func (e *Energy) Reset() {
	for i := range e.history {
		e.history[i] = 0
	}
	e.index = 0
	e.filled = 0
	e.inSpeech = false
}

// rms computes normalized root-mean-square energy of s16 little-endian PCM.
func rms(frame []byte) float64 {
	var sum float64
	count := 0
	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(frame[i]) | int16(frame[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}
