// Package narration manages spoken playback of lesson text. A user has one
// narration channel: starting a lesson cancels whatever else was speaking.
package narration

import (
	"context"
	"errors"
)

var (
	ErrUnsupported = errors.New("narration is not supported")
	ErrDisposed    = errors.New("narration controller disposed")
	ErrNotOwner    = errors.New("no active narration for this lesson")
	ErrEmptyText   = errors.New("nothing to narrate")
)

type Voice struct {
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// DefaultVoice is a fixed locale at a slightly reduced rate.
var DefaultVoice = Voice{Lang: "en-US", Rate: 0.9, Pitch: 1, Volume: 1}

type Utterance struct {
	Owner string
	Text  string
	Voice Voice
}

// Session is one playback of an utterance.
type Session interface {
	ID() string
	Pause() error
	Resume() error
	Cancel() error
}

// Engine speaks utterances. done is called once when the session ends
// naturally (nil) or the engine reports an error. Engines must not call done
// from inside Speak.
type Engine interface {
	Supported() bool
	Speak(ctx context.Context, u Utterance, done func(err error)) (Session, error)
}
