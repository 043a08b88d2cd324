package recognizer

import (
	"fmt"
	"sync"
	"time"

	"github.com/simrit1/JSpeechRecognizer/internal/event"
	"github.com/simrit1/JSpeechRecognizer/internal/fsm"
	"github.com/simrit1/JSpeechRecognizer/internal/vad"
	"github.com/simrit1/JSpeechRecognizer/internal/wakeword"
)

// SegmenterConfig controls segmentation timing and buffering.
type SegmenterConfig struct {
	// SpeechLength is the trailing-silence duration that completes a
	// segment, measured wall-clock against the last voiced frame.
	SpeechLength time.Duration
	// SilenceAfter emits one Silence heartbeat per run of this many
	// consecutive non-speech frames outside an active segment; 0 disables.
	SilenceAfter int
	// PreRollFrames caps the rolling buffer of pre-segment audio.
	PreRollFrames int
	// IncludePreRoll seeds new segments with the pre-roll buffer so
	// wakeword audio survives into the transcript.
	IncludePreRoll bool
}

// Segmenter is the per-frame segmentation state machine.
//
// It owns wakeword gating, the VAD-driven segment lifecycle, and the
// silence timeout, and emits ordered events to its sink. It is not safe
// for concurrent Feed calls; the Recognizer drives it from one goroutine.
type Segmenter struct {
	spotter    wakeword.Spotter
	classifier vad.Classifier
	sink       event.Sink
	cfg        SegmenterConfig

	now func() time.Time

	mu    sync.RWMutex
	state fsm.State

	frames    [][]byte
	voiced    int // length of frames up to the last voiced one
	lastVoice time.Time
	ring      [][]byte
	quiet     int
}

// NewSegmenter validates collaborators and builds an idle segmenter.
func NewSegmenter(spotter wakeword.Spotter, classifier vad.Classifier, sink event.Sink, cfg SegmenterConfig) (*Segmenter, error) {
	if spotter == nil {
		return nil, fmt.Errorf("wakeword spotter is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("voice activity classifier is required")
	}
	if cfg.SpeechLength <= 0 {
		return nil, fmt.Errorf("speech length must be > 0, got %v", cfg.SpeechLength)
	}
	if cfg.SilenceAfter < 0 {
		return nil, fmt.Errorf("silence heartbeat streak must be >= 0, got %d", cfg.SilenceAfter)
	}
	if cfg.PreRollFrames < 0 {
		return nil, fmt.Errorf("pre-roll frame count must be >= 0, got %d", cfg.PreRollFrames)
	}
	if sink == nil {
		sink = event.Discard
	}

	return &Segmenter{
		spotter:    spotter,
		classifier: classifier,
		sink:       sink,
		cfg:        cfg,
		now:        time.Now,
		state:      fsm.StateIdle,
	}, nil
}

// State returns the current machine state snapshot.
func (s *Segmenter) State() fsm.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Feed processes one frame through the machine.
//
// When the frame completes a segment, Feed returns the segment's frames
// (trimmed of the trailing silence run) and done=true; emitting the
// CompleteFrames event is the caller's job, after transcription.
func (s *Segmenter) Feed(frame []byte) (segment [][]byte, done bool) {
	arrived := s.now()

	det, matched, err := s.spotter.Process(frame)
	if err != nil {
		s.sink.OnEvent(event.Diagnostic{Stage: "wakeword", Err: err})
		matched = false
	}
	// Matches while armed or capturing are ignored: the gate is already
	// open or a segment is already running.
	if matched && s.State() == fsm.StateIdle {
		s.transition(fsm.EventWake)
		s.quiet = 0
		s.sink.OnEvent(event.WakewordDetected{Index: det.Index, Keyword: det.Keyword})
	}

	voiced, err := s.classifier.IsSpeech(frame)
	if err != nil {
		s.sink.OnEvent(event.Diagnostic{Stage: "vad", Err: err})
		voiced = false
	}

	switch s.State() {
	case fsm.StateCapturing:
		s.frames = append(s.frames, frame)
		s.sink.OnEvent(event.PartialFrames{Frame: frame})
		if voiced {
			s.voiced = len(s.frames)
			s.lastVoice = arrived
			return nil, false
		}
		if arrived.Sub(s.lastVoice) >= s.cfg.SpeechLength {
			return s.finalize(), true
		}
	case fsm.StateArmed:
		if voiced {
			s.startSegment(frame, arrived)
			return nil, false
		}
		// Not buffered into a segment while waiting post-wakeword.
		s.bufferPreRoll(frame)
		s.heartbeat()
	default:
		s.bufferPreRoll(frame)
		if voiced {
			s.quiet = 0
		} else {
			s.heartbeat()
		}
	}
	return nil, false
}

// Discard drops any live segment and returns the machine to idle.
func (s *Segmenter) Discard() {
	s.frames = nil
	s.voiced = 0
	s.ring = nil
	s.quiet = 0
	if s.State() != fsm.StateIdle {
		s.transition(fsm.EventReset)
	}
}

// startSegment opens a new segment on the first voiced frame after the gate.
func (s *Segmenter) startSegment(frame []byte, arrived time.Time) {
	s.transition(fsm.EventVoice)

	s.frames = s.frames[:0]
	if s.cfg.IncludePreRoll && len(s.ring) > 0 {
		s.frames = append(s.frames, s.ring...)
		s.ring = nil
	}
	s.frames = append(s.frames, frame)
	s.voiced = len(s.frames)
	s.lastVoice = arrived
	s.quiet = 0

	s.sink.OnEvent(event.SpeechStarted{})
	s.sink.OnEvent(event.PartialFrames{Frame: frame})
}

// finalize closes the live segment: the gate shuts and a fresh wakeword
// is required for the next utterance.
func (s *Segmenter) finalize() [][]byte {
	segment := s.frames[:s.voiced]
	s.frames = nil
	s.voiced = 0
	s.quiet = 0
	s.transition(fsm.EventTimeout)
	return segment
}

// bufferPreRoll retains recent pre-segment audio in a bounded ring.
func (s *Segmenter) bufferPreRoll(frame []byte) {
	if s.cfg.PreRollFrames <= 0 {
		return
	}
	if len(s.ring) >= s.cfg.PreRollFrames {
		s.ring = s.ring[1:]
	}
	s.ring = append(s.ring, frame)
}

// heartbeat emits one rate-limited Silence event per quiet streak.
func (s *Segmenter) heartbeat() {
	if s.cfg.SilenceAfter <= 0 {
		return
	}
	s.quiet++
	if s.quiet >= s.cfg.SilenceAfter {
		s.quiet = 0
		s.sink.OnEvent(event.Silence{})
	}
}

// transition applies one FSM event; the call sites only request
// transitions the table allows.
func (s *Segmenter) transition(ev fsm.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fsm.Transition(s.state, ev)
	if err != nil {
		return
	}
	s.state = next
}
