package narration

import (
	"context"
	"sync"
)

type State string

const (
	StateUnsupported State = "unsupported"
	StateIdle        State = "idle"
	StatePlaying     State = "playing"
	StatePaused      State = "paused"
)

// Controller is the narration handle for one lesson view. Support is decided
// once, when the controller is created.
type Controller struct {
	key         string
	text        string
	manager     *Manager
	unsupported bool

	mu       sync.Mutex
	disposed bool
}

func NewController(m *Manager, key, text string) *Controller {
	return &Controller{
		key:         key,
		text:        text,
		manager:     m,
		unsupported: !m.Supported(),
	}
}

func (c *Controller) State() State {
	if c.unsupported {
		return StateUnsupported
	}
	return c.manager.state(c)
}

// SessionID is the id of the playing or paused session, empty otherwise.
func (c *Controller) SessionID() string {
	if c.unsupported {
		return ""
	}
	return c.manager.sessionID(c)
}

// Toggle pauses when playing, resumes when paused, and otherwise starts from
// the beginning.
func (c *Controller) Toggle(ctx context.Context) (State, error) {
	if c.unsupported {
		return StateUnsupported, ErrUnsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return StateIdle, ErrDisposed
	}

	switch c.manager.state(c) {
	case StatePlaying:
		if err := c.manager.Pause(c); err != nil {
			return c.manager.state(c), err
		}
	case StatePaused:
		if err := c.manager.Resume(c); err != nil {
			return c.manager.state(c), err
		}
	default:
		if err := c.manager.Start(ctx, c, c.text); err != nil {
			return c.manager.state(c), err
		}
	}
	return c.manager.state(c), nil
}

// Dispose stops this controller's narration, if any. It is safe to call twice.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	if !c.unsupported {
		c.manager.Stop(c)
	}
}
