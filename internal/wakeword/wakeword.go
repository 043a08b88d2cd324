// Package wakeword provides the wakeword spotter contract and an energy-burst implementation.
package wakeword

// Detection is one wakeword match reported by a spotter.
type Detection struct {
	Index       int
	Keyword     string
	Sensitivity float64
}

// Spotter scans one raw PCM frame for a configured wakeword.
//
// ok is false when no wakeword matched; a returned error marks the
// frame unprocessable and the caller treats it as no match.
type Spotter interface {
	Process(frame []byte) (det Detection, ok bool, err error)
}

// SpotterFunc adapts a function to the Spotter interface.
type SpotterFunc func(frame []byte) (Detection, bool, error)

func (f SpotterFunc) Process(frame []byte) (Detection, bool, error) { return f(frame) }
