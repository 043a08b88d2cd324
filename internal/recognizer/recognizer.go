// Package recognizer implements the wakeword-gated streaming segmentation engine.
package recognizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/simrit1/JSpeechRecognizer/internal/asr"
	"github.com/simrit1/JSpeechRecognizer/internal/event"
	"github.com/simrit1/JSpeechRecognizer/internal/fsm"
	"github.com/simrit1/JSpeechRecognizer/internal/vad"
	"github.com/simrit1/JSpeechRecognizer/internal/wakeword"
)

// Source produces the raw audio frame stream.
//
// The channel blocks until a frame is available and closes when the
// source is exhausted; frames are fixed-size and never mutated after
// delivery.
type Source interface {
	Frames() <-chan []byte
}

// transcribeQueueDepth bounds segments awaiting transcription. A full
// queue backpressures the frame loop rather than losing segment audio.
const transcribeQueueDepth = 16

// Recognizer is the caller-facing controller over one frame loop.
//
// Exactly one loop runs per Recognizer at a time, either on the caller's
// goroutine (blocking start) or on a background one. CompleteFrames is
// emitted from the frame loop at finalize time, so one segment's events
// never interleave with the next segment's; the transcript then resolves
// on a dedicated FIFO worker, segment N's before segment N+1's, and
// transcription never blocks frame intake.
type Recognizer struct {
	logger *slog.Logger
	source Source
	seg    *Segmenter
	engine asr.Engine
	sink   event.Sink

	mu      sync.Mutex
	started bool
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New wires a recognizer from its collaborators.
//
// engine may be nil, in which case segments complete with an empty
// transcript; sink may be nil for callers that only poll State.
func New(
	logger *slog.Logger,
	source Source,
	spotter wakeword.Spotter,
	classifier vad.Classifier,
	engine asr.Engine,
	sink event.Sink,
	cfg SegmenterConfig,
) (*Recognizer, error) {
	if source == nil {
		return nil, fmt.Errorf("frame source is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if sink == nil {
		sink = event.Discard
	}

	// Events reach the caller's sink from the frame loop and from the
	// transcription worker; serialize so sinks need no locking of their own.
	locked := &lockedSink{next: sink}

	seg, err := NewSegmenter(spotter, classifier, locked, cfg)
	if err != nil {
		return nil, err
	}

	return &Recognizer{
		logger: logger,
		source: source,
		seg:    seg,
		engine: engine,
		sink:   locked,
	}, nil
}

// State reports the segmentation state of the live session, or idle.
func (r *Recognizer) State() fsm.State {
	return r.seg.State()
}

// Running reports whether a frame loop is currently active.
func (r *Recognizer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start begins consuming frames.
//
// With block=true the calling goroutine runs the loop until Stop is
// called from another path of execution, the context is cancelled, or
// the source is exhausted. With block=false the loop runs on a
// background goroutine and Start returns immediately. Starting an
// already-running session returns ErrAlreadyRunning.
func (r *Recognizer) Start(ctx context.Context, block bool) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.started = true
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	if block {
		r.run(ctx)
		return nil
	}
	go r.run(ctx)
	return nil
}

// Stop requests loop termination and waits for it to exit.
//
// The loop observes the request at the top of its per-frame turn, never
// mid-frame, and discards any in-progress segment. Stop before any
// Start returns ErrNotRunning; Stop after the session ended is a no-op.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return ErrNotRunning
	}
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	done := r.doneCh
	r.mu.Unlock()

	<-done
	return nil
}

// transcribeJob pairs a finalized segment with the transcript handle
// already emitted for it.
type transcribeJob struct {
	segment    [][]byte
	transcript *event.Transcript
}

// run is the frame-consumption loop; one instance per session.
func (r *Recognizer) run(ctx context.Context) {
	jobs := make(chan transcribeJob, transcribeQueueDepth)
	workerDone := make(chan struct{})
	go r.transcribeLoop(ctx, jobs, workerDone)

	defer func() {
		r.seg.Discard()
		close(jobs)
		<-workerDone

		r.mu.Lock()
		r.running = false
		done := r.doneCh
		r.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case frame, ok := <-r.source.Frames():
			if !ok {
				r.logger.Info("frame source exhausted")
				return
			}
			segment, done := r.seg.Feed(frame)
			if !done {
				continue
			}
			transcript := event.NewTranscript()
			r.sink.OnEvent(event.CompleteFrames{Frames: segment, Transcript: transcript})
			select {
			case jobs <- transcribeJob{segment: segment, transcript: transcript}:
			case <-r.stopCh:
				transcript.Resolve("", nil)
				return
			}
		}
	}
}

// transcribeLoop drives the engine for finalized segments in FIFO order
// and resolves their transcript handles. Jobs already queued when the
// session stops are still flushed.
func (r *Recognizer) transcribeLoop(ctx context.Context, jobs <-chan transcribeJob, done chan<- struct{}) {
	defer close(done)

	for job := range jobs {
		text := ""
		var err error
		if r.engine != nil {
			text, err = r.engine.Transcribe(ctx, job.segment)
			if err != nil {
				// The segment's audio was already emitted; a transcription
				// failure only leaves it unlabeled.
				r.logger.Warn("transcription failed", "error", err.Error(), "frames", len(job.segment))
				r.sink.OnEvent(event.Diagnostic{Stage: "transcribe", Err: err})
				text = ""
			}
		}
		job.transcript.Resolve(text, err)
	}
}

// lockedSink serializes sink invocations from the loop and the worker.
type lockedSink struct {
	mu   sync.Mutex
	next event.Sink
}

func (l *lockedSink) OnEvent(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.OnEvent(e)
}
