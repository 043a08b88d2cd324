// Package vad provides the voice-activity classifier contract and an energy implementation.
package vad

// Classifier reports whether one raw PCM frame contains speech.
//
// Implementations may keep internal state across frames (smoothing,
// hysteresis); a returned error marks the frame unclassifiable and the
// caller treats it as non-speech.
type Classifier interface {
	IsSpeech(frame []byte) (bool, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(frame []byte) (bool, error)

func (f ClassifierFunc) IsSpeech(frame []byte) (bool, error) { return f(frame) }
