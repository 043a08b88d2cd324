// Package asr provides the transcription engine contract and concrete engines.
package asr

import "context"

// Engine turns one buffered audio segment into recognized text.
//
// The segment is an ordered sequence of raw PCM frames; streaming
// engines replay it over their transport internally. Transcribe is
// called from a single worker goroutine, one segment at a time.
type Engine interface {
	Transcribe(ctx context.Context, segment [][]byte) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, segment [][]byte) (string, error)

func (f EngineFunc) Transcribe(ctx context.Context, segment [][]byte) (string, error) {
	return f(ctx, segment)
}
