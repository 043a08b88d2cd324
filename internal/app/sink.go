package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/simrit1/JSpeechRecognizer/internal/audio"
	"github.com/simrit1/JSpeechRecognizer/internal/event"
)

// eventWriter renders recognition events as JSON lines on stdout.
//
// Per-frame partials are logged rather than printed; at 16kHz they would
// swamp any consumer of the event stream. The recognizer serializes sink
// calls, but transcript lines arrive from their own goroutine once the
// deferred result resolves, so writes hold mu.
type eventWriter struct {
	out     io.Writer
	logger  *slog.Logger
	dumpDir string

	mu sync.Mutex
}

// eventLine is the on-the-wire shape of one printed event.
type eventLine struct {
	Type       string `json:"type"`
	Keyword    string `json:"keyword,omitempty"`
	Index      int    `json:"index,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Frames     int    `json:"frames,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`
	AudioFile  string `json:"audio_file,omitempty"`
}

func (w *eventWriter) OnEvent(e event.Event) {
	switch ev := e.(type) {
	case event.WakewordDetected:
		w.logger.Info("wakeword detected", "keyword", ev.Keyword, "index", ev.Index)
		w.print(eventLine{Type: string(ev.Kind()), Keyword: ev.Keyword, Index: ev.Index})
	case event.SpeechStarted:
		w.logger.Info("speech started")
		w.print(eventLine{Type: string(ev.Kind())})
	case event.PartialFrames:
		w.logger.Debug("partial frame", "bytes", len(ev.Frame))
	case event.CompleteFrames:
		line := eventLine{
			Type:       string(ev.Kind()),
			Frames:     len(ev.Frames),
			DurationMS: segmentDurationMS(ev.Frames),
		}
		if w.dumpDir != "" {
			path, err := dumpSegment(w.dumpDir, ev.Frames)
			if err != nil {
				w.logger.Warn("segment dump failed", "error", err.Error())
			} else {
				line.AudioFile = path
			}
		}
		w.logger.Info("utterance complete",
			"frames", line.Frames,
			"duration_ms", line.DurationMS,
		)
		w.print(line)
		w.emitTranscript(ev.Transcript)
	case event.Silence:
		w.print(eventLine{Type: string(ev.Kind())})
	case event.Diagnostic:
		w.logger.Warn("recognition diagnostic", "stage", ev.Stage, "error", ev.Err.Error())
		w.print(eventLine{Type: string(ev.Kind()), Stage: ev.Stage, Error: ev.Err.Error()})
	}
}

// emitTranscript prints the segment's transcript as its own line once
// the deferred result resolves. Already-resolved transcripts print
// inline; pending ones print from a goroutine when ready. Failures are
// not printed here; the recognizer reports them as diagnostics.
func (w *eventWriter) emitTranscript(tr *event.Transcript) {
	if tr == nil {
		return
	}
	select {
	case <-tr.Done():
		w.printTranscript(tr)
	default:
		go func() {
			<-tr.Done()
			w.printTranscript(tr)
		}()
	}
}

func (w *eventWriter) printTranscript(tr *event.Transcript) {
	text := tr.Text()
	if tr.Err() != nil || text == "" {
		return
	}
	w.logger.Info("utterance transcribed", "transcript_length", len(text))
	w.print(eventLine{Type: "transcript", Transcript: text})
}

func (w *eventWriter) print(line eventLine) {
	payload, err := json.Marshal(line)
	if err != nil {
		w.logger.Error("encode event", "error", err.Error())
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, string(payload))
}

func segmentDurationMS(frames [][]byte) int64 {
	var total int64
	for _, frame := range frames {
		total += int64(len(frame))
	}
	// s16 mono: two bytes per sample.
	return total * 1000 / (2 * audio.SampleRate)
}

// dumpSegment writes one completed utterance as a WAV file and returns its path.
func dumpSegment(dir string, frames [][]byte) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	var pcm []byte
	for _, frame := range frames {
		pcm = append(pcm, frame...)
	}
	name := fmt.Sprintf("segment-%s.wav", time.Now().Format("20060102-150405.000"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, audio.EncodeWAV(pcm, audio.SampleRate, 1), 0o600); err != nil {
		return "", err
	}
	return path, nil
}
