package narration

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"courseos-backend/internal/models"
)

var (
	ErrEngineUnavailable = errors.New("no narration client connected")
	ErrUnknownSession    = errors.New("unknown narration session")
)

// Sender delivers messages to a user's connected clients.
type Sender interface {
	Connected(userID uuid.UUID) bool
	SendToUser(userID uuid.UUID, msg interface{}) bool
}

type pending struct {
	userID uuid.UUID
	done   func(err error)
}

// RemoteEngine drives the speech synthesizer in the user's browser. Commands go
// out over the websocket; the client reports end and error events back, which
// are fed in through HandleEvent.
type RemoteEngine struct {
	sender Sender

	mu       sync.Mutex
	sessions map[uuid.UUID]pending
}

func NewRemoteEngine(sender Sender) *RemoteEngine {
	return &RemoteEngine{sender: sender, sessions: make(map[uuid.UUID]pending)}
}

// ForUser returns an Engine bound to one user's clients.
func (e *RemoteEngine) ForUser(userID uuid.UUID) Engine {
	return &userEngine{remote: e, userID: userID}
}

// HandleEvent routes a client report to the session's done callback.
func (e *RemoteEngine) HandleEvent(userID, sessionID uuid.UUID, event, message string) error {
	e.mu.Lock()
	p, ok := e.sessions[sessionID]
	if !ok || p.userID != userID {
		e.mu.Unlock()
		return ErrUnknownSession
	}

	var err error
	switch event {
	case "end":
	case "error":
		if message == "" {
			message = "narration failed"
		}
		err = errors.New(message)
	default:
		e.mu.Unlock()
		return errors.New("unknown narration event: " + event)
	}
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	go p.done(err)
	return nil
}

func (e *RemoteEngine) send(userID uuid.UUID, cmd models.NarrationCommand) error {
	if !e.sender.SendToUser(userID, models.WSMessage{Type: models.WSNarration, Payload: cmd}) {
		return ErrEngineUnavailable
	}
	return nil
}

func (e *RemoteEngine) forget(sessionID uuid.UUID) {
	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()
}

type userEngine struct {
	remote *RemoteEngine
	userID uuid.UUID
}

func (u *userEngine) Supported() bool {
	return u.remote.sender.Connected(u.userID)
}

func (u *userEngine) Speak(ctx context.Context, utt Utterance, done func(err error)) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.New()
	lessonID, _ := uuid.Parse(utt.Owner)

	u.remote.mu.Lock()
	u.remote.sessions[id] = pending{userID: u.userID, done: done}
	u.remote.mu.Unlock()

	err := u.remote.send(u.userID, models.NarrationCommand{
		Action:    "speak",
		SessionID: id,
		LessonID:  lessonID,
		Text:      utt.Text,
		Lang:      utt.Voice.Lang,
		Rate:      utt.Voice.Rate,
		Pitch:     utt.Voice.Pitch,
		Volume:    utt.Voice.Volume,
	})
	if err != nil {
		u.remote.forget(id)
		return nil, err
	}

	return &remoteSession{remote: u.remote, userID: u.userID, id: id, lessonID: lessonID}, nil
}

type remoteSession struct {
	remote   *RemoteEngine
	userID   uuid.UUID
	id       uuid.UUID
	lessonID uuid.UUID
}

func (s *remoteSession) ID() string { return s.id.String() }

func (s *remoteSession) Pause() error  { return s.command("pause") }
func (s *remoteSession) Resume() error { return s.command("resume") }

// Cancel stops the utterance on the client. A late end or error report for
// this session is then unknown.
func (s *remoteSession) Cancel() error {
	s.remote.forget(s.id)
	return s.command("cancel")
}

func (s *remoteSession) command(action string) error {
	return s.remote.send(s.userID, models.NarrationCommand{
		Action:    action,
		SessionID: s.id,
		LessonID:  s.lessonID,
	})
}
