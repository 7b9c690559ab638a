package narration

import (
	"sync"

	"github.com/google/uuid"

	"courseos-backend/internal/logger"
)

// EngineFactory returns the engine that speaks for userID.
type EngineFactory func(userID uuid.UUID) Engine

type userNarration struct {
	manager     *Manager
	controllers map[uuid.UUID]*Controller
}

// Registry keeps one Manager per user and one Controller per lesson view.
type Registry struct {
	newEngine EngineFactory
	log       *logger.Logger

	mu    sync.Mutex
	users map[uuid.UUID]*userNarration
}

func NewRegistry(newEngine EngineFactory, log *logger.Logger) *Registry {
	return &Registry{
		newEngine: newEngine,
		log:       log,
		users:     make(map[uuid.UUID]*userNarration),
	}
}

// Controller returns the lesson's controller, creating it with text on first use.
func (r *Registry) Controller(userID, lessonID uuid.UUID, text string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		u = &userNarration{
			manager:     NewManager(r.newEngine(userID), r.log.With("user_id", userID)),
			controllers: make(map[uuid.UUID]*Controller),
		}
		r.users[userID] = u
	}

	c, ok := u.controllers[lessonID]
	if !ok {
		c = NewController(u.manager, lessonID.String(), text)
		u.controllers[lessonID] = c
	}
	return c
}

func (r *Registry) Lookup(userID, lessonID uuid.UUID) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	c, ok := u.controllers[lessonID]
	return c, ok
}

// Dispose tears down a lesson's controller, cancelling its narration.
func (r *Registry) Dispose(userID, lessonID uuid.UUID) bool {
	r.mu.Lock()
	u, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	c, ok := u.controllers[lessonID]
	if ok {
		delete(u.controllers, lessonID)
	}
	empty := len(u.controllers) == 0
	if empty {
		delete(r.users, userID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Dispose()
	if empty {
		u.manager.Dispose()
	}
	return true
}

// DisposeUser cancels everything the user has playing.
func (r *Registry) DisposeUser(userID uuid.UUID) {
	r.mu.Lock()
	u, ok := r.users[userID]
	delete(r.users, userID)
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, c := range u.controllers {
		c.Dispose()
	}
	u.manager.Dispose()
}
