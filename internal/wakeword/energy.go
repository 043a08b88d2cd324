package wakeword

import (
	"errors"
	"fmt"
	"math"
)

// EnergySpotter triggers on a sustained energy burst: a configurable run
// of consecutive frames whose RMS clears a sensitivity-derived threshold.
//
// It is a lightweight stand-in for a model-based keyword engine and only
// supports a single keyword; the spotter contract is where a real engine
// (Porcupine, openWakeWord) plugs in.
type EnergySpotter struct {
	keyword     string
	sensitivity float64
	threshold   float64
	burstFrames int

	run     int
	matched bool
}

// baseThreshold is the normalized RMS a zero-sensitivity spotter requires.
const baseThreshold = 0.12

// NewEnergySpotter builds a single-keyword burst spotter.
//
// Sensitivity follows the Porcupine convention: values in [0,1], higher
// values trigger more easily. burstFrames <= 0 defaults to 3.
func NewEnergySpotter(keywords []string, sensitivities []float64, burstFrames int) (*EnergySpotter, error) {
	if len(keywords) != len(sensitivities) {
		return nil, fmt.Errorf("keywords/sensitivities length mismatch: %d vs %d", len(keywords), len(sensitivities))
	}
	if len(keywords) != 1 {
		return nil, fmt.Errorf("energy spotter supports exactly one keyword, got %d", len(keywords))
	}
	sensitivity := sensitivities[0]
	if sensitivity < 0 || sensitivity > 1 {
		return nil, fmt.Errorf("sensitivity must be in [0,1], got %v", sensitivity)
	}
	if burstFrames <= 0 {
		burstFrames = 3
	}

	return &EnergySpotter{
		keyword:     keywords[0],
		sensitivity: sensitivity,
		threshold:   baseThreshold * (1 - 0.75*sensitivity),
		burstFrames: burstFrames,
	}, nil
}

// Process scans one little-endian s16 PCM frame.
//
// A match is reported once per burst; the burst must fall below the
// threshold before the spotter can fire again.
func (s *EnergySpotter) Process(frame []byte) (Detection, bool, error) {
	if len(frame) < 2 {
		return Detection{}, false, errors.New("frame too short for s16 samples")
	}

	if frameRMS(frame) < s.threshold {
		s.run = 0
		s.matched = false
		return Detection{}, false, nil
	}

	s.run++
	if s.matched || s.run < s.burstFrames {
		return Detection{}, false, nil
	}
	s.matched = true
	return Detection{Index: 0, Keyword: s.keyword, Sensitivity: s.sensitivity}, true, nil
}

// Reset clears burst tracking state.
func (s *EnergySpotter) Reset() {
	s.run = 0
	s.matched = false
}

func frameRMS(frame []byte) float64 {
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
