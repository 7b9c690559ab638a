package narration

import (
	"context"
	"sync"

	"courseos-backend/internal/logger"
)

type active struct {
	owner   *Controller
	gen     uint64
	session Session
	paused  bool
}

// Manager owns the single narration channel of one user. Start, Pause, Resume,
// Stop and Dispose are the only ways to change what is playing.
type Manager struct {
	engine Engine
	log    *logger.Logger

	mu       sync.Mutex
	current  *active
	gen      uint64
	disposed bool
}

func NewManager(engine Engine, log *logger.Logger) *Manager {
	return &Manager{engine: engine, log: log.With("component", "narration")}
}

func (m *Manager) Supported() bool {
	return m.engine.Supported()
}

// Start cancels whatever is playing, then speaks text for owner.
func (m *Manager) Start(ctx context.Context, owner *Controller, text string) error {
	cleaned := CleanMarkup(text)
	if cleaned == "" {
		return ErrEmptyText
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return ErrDisposed
	}

	m.cancelLocked()

	m.gen++
	gen := m.gen
	sess, err := m.engine.Speak(ctx, Utterance{Owner: owner.key, Text: cleaned, Voice: DefaultVoice}, func(err error) {
		m.finished(gen, err)
	})
	if err != nil {
		return err
	}

	m.current = &active{owner: owner, gen: gen, session: sess}
	return nil
}

func (m *Manager) Pause(owner *Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.owner != owner {
		return ErrNotOwner
	}
	if m.current.paused {
		return nil
	}
	if err := m.current.session.Pause(); err != nil {
		return err
	}
	m.current.paused = true
	return nil
}

func (m *Manager) Resume(owner *Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.owner != owner {
		return ErrNotOwner
	}
	if !m.current.paused {
		return nil
	}
	if err := m.current.session.Resume(); err != nil {
		return err
	}
	m.current.paused = false
	return nil
}

// Stop cancels the active session if owner holds it.
func (m *Manager) Stop(owner *Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.owner == owner {
		m.cancelLocked()
	}
}

// Dispose cancels any active session; later Starts fail.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.disposed = true
}

func (m *Manager) state(owner *Controller) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.owner != owner {
		return StateIdle
	}
	if m.current.paused {
		return StatePaused
	}
	return StatePlaying
}

func (m *Manager) sessionID(owner *Controller) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.owner != owner {
		return ""
	}
	return m.current.session.ID()
}

func (m *Manager) cancelLocked() {
	if m.current == nil {
		return
	}
	if err := m.current.session.Cancel(); err != nil {
		m.log.Warn("cancel narration failed", "session_id", m.current.session.ID(), "error", err)
	}
	m.current = nil
}

// finished ends generation gen. Reports for sessions that were already
// cancelled or replaced are ignored.
func (m *Manager) finished(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.gen != gen {
		return
	}
	if err != nil {
		m.log.Warn("narration ended with error", "session_id", m.current.session.ID(), "error", err)
	}
	m.current = nil
}
