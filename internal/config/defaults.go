package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Wakeword: WakewordConfig{
			Keywords:      []string{"jarvis"},
			Sensitivities: []float64{0.5},
		},
		Segmenter: SegmenterConfig{
			SpeechLength:  0.9,
			SilenceAfter:  0,
			PreRollFrames: 30,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		VAD: VADConfig{
			SpeechThreshold:  0.015,
			SilenceThreshold: 0.008,
			SmoothingFrames:  5,
		},
		Engine: EngineConfig{
			Backend:  "vosk",
			VoskURL:  "ws://127.0.0.1:2700",
			Language: "en-US",
		},
		Debug: DebugConfig{},
	}
}
