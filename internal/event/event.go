// Package event defines the closed set of recognition events and the sink contract.
package event

import "sync"

// Type tags one event variant for sinks that dispatch on kind.
type Type string

const (
	TypeWakewordDetected Type = "wakeword_detected"
	TypeSpeechStarted    Type = "speech_started"
	TypePartialFrames    Type = "partial_frames"
	TypeCompleteFrames   Type = "complete_frames"
	TypeSilence          Type = "silence"
	TypeDiagnostic       Type = "diagnostic"
)

// Event is one immutable record emitted by the segmentation engine.
// The variant set is closed; payload ownership transfers to the sink.
type Event interface {
	Kind() Type
}

// WakewordDetected reports a wakeword match that opened the gate.
type WakewordDetected struct {
	Index   int
	Keyword string
}

func (WakewordDetected) Kind() Type { return TypeWakewordDetected }

// SpeechStarted marks the first voiced frame of a new segment.
type SpeechStarted struct{}

func (SpeechStarted) Kind() Type { return TypeSpeechStarted }

// PartialFrames carries one frame of a live segment for downstream streaming.
type PartialFrames struct {
	Frame []byte
}

func (PartialFrames) Kind() Type { return TypePartialFrames }

// CompleteFrames carries one finalized segment. The frame payload is
// final at emission time; Transcript resolves afterward, once the
// transcription engine has processed the segment.
type CompleteFrames struct {
	Frames     [][]byte
	Transcript *Transcript
}

func (CompleteFrames) Kind() Type { return TypeCompleteFrames }

// Transcript is the deferred transcription result of one completed
// segment. Text and Err return zero values until Done is closed.
type Transcript struct {
	once sync.Once
	done chan struct{}
	text string
	err  error
}

// NewTranscript returns a transcript awaiting resolution.
func NewTranscript() *Transcript {
	return &Transcript{done: make(chan struct{})}
}

// ResolvedTranscript returns a transcript that is already final.
func ResolvedTranscript(text string) *Transcript {
	t := NewTranscript()
	t.Resolve(text, nil)
	return t
}

// Resolve finalizes the transcript and closes Done. Only the first
// call takes effect.
func (t *Transcript) Resolve(text string, err error) {
	t.once.Do(func() {
		t.text = text
		t.err = err
		close(t.done)
	})
}

// Done is closed once the transcript is final.
func (t *Transcript) Done() <-chan struct{} { return t.done }

// Text returns the recognized text, or "" while pending or on failure.
func (t *Transcript) Text() string {
	select {
	case <-t.done:
		return t.text
	default:
		return ""
	}
}

// Err reports the transcription failure, or nil while pending.
func (t *Transcript) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Silence is a rate-limited heartbeat emitted outside an active segment.
type Silence struct{}

func (Silence) Kind() Type { return TypeSilence }

// Diagnostic reports a recovered per-frame or transcription failure.
type Diagnostic struct {
	Stage string
	Err   error
}

func (Diagnostic) Kind() Type { return TypeDiagnostic }

// Sink receives every event the engine produces, in emission order.
type Sink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(e Event) { f(e) }

// Discard is a sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})
