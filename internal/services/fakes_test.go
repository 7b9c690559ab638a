package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"courseos-backend/internal/models"
)

type fakeCompleter struct {
	mu     sync.Mutex
	resp   string
	err    error
	calls  []CompletionRequest
	during func()        // runs on every call before it returns
	block  chan struct{} // when set, calls wait for it to close
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	resp, err, during, block := f.resp, f.err, f.during, f.block
	f.mu.Unlock()

	if during != nil {
		during()
	}
	if block != nil {
		<-block
	}
	return resp, err
}

func (f *fakeCompleter) respond(resp string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp, f.err, f.during = resp, err, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCourseRepo struct {
	mu        sync.Mutex
	createErr error
	listErr   error
	courses   map[uuid.UUID]*models.Course
	creates   int
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[uuid.UUID]*models.Course)}
}

func (r *fakeCourseRepo) Create(_ context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	if c.GenerationKey != nil {
		for _, existing := range r.courses {
			if existing.CreatorID == c.CreatorID && existing.GenerationKey != nil && *existing.GenerationKey == *c.GenerationKey {
				*c = *existing
				return nil
			}
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.courses[c.ID] = &stored
	return nil
}

func (r *fakeCourseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (r *fakeCourseRepo) GetByGenerationKey(_ context.Context, creatorID uuid.UUID, key string) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		if c.CreatorID == creatorID && c.GenerationKey != nil && *c.GenerationKey == key {
			out := *c
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCourseRepo) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*models.Course
	for _, c := range r.courses {
		if c.CreatorID == creatorID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCourseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses)
}

type fakeLessonRepo struct {
	mu       sync.Mutex
	batchErr error
	listErr  error
	batches  [][]*models.Lesson
	lessons  map[uuid.UUID][]*models.Lesson
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{lessons: make(map[uuid.UUID][]*models.Lesson)}
}

func (r *fakeLessonRepo) CreateBatch(_ context.Context, lessons []*models.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, lessons)
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, l := range lessons {
		l.ID = uuid.New()
		r.lessons[l.CourseID] = append(r.lessons[l.CourseID], l)
	}
	return nil
}

func (r *fakeLessonRepo) ListByCourse(_ context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.lessons[courseID], nil
}

func (r *fakeLessonRepo) stored(courseID uuid.UUID) []*models.Lesson {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Lesson(nil), r.lessons[courseID]...)
}

func (r *fakeLessonRepo) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

type memStatusStore struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]models.GenerationStatus
	history  []models.GenerationState
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{statuses: make(map[uuid.UUID]models.GenerationStatus)}
}

func (s *memStatusStore) Get(_ context.Context, id uuid.UUID) (*models.GenerationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *memStatusStore) Put(_ context.Context, id uuid.UUID, st *models.GenerationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = *st
	s.history = append(s.history, st.State)
	return nil
}

func (s *memStatusStore) Claim(_ context.Context, id uuid.UUID, st *models.GenerationStatus, staleAfter time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.statuses[id]; ok && isRunning(&cur, staleAfter) {
		return false, nil
	}
	s.statuses[id] = *st
	s.history = append(s.history, st.State)
	return true, nil
}

// ctxStatusStore rejects writes on a cancelled context, as go-redis does.
type ctxStatusStore struct {
	*memStatusStore
}

func (s ctxStatusStore) Put(ctx context.Context, id uuid.UUID, st *models.GenerationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memStatusStore.Put(ctx, id, st)
}

func (s *memStatusStore) Clear(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, id)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []models.WSMessage
}

func (n *recordingNotifier) Publish(_ context.Context, _ uuid.UUID, msg models.WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

type fakeQueue struct {
	err  error
	jobs []*models.GenerationJob
}

func (q *fakeQueue) Push(_ context.Context, job *models.GenerationJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	logins  int
	failGet error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = uuid.New()
	u.IsActive = true
	if u.AuthProvider == "" {
		u.AuthProvider = "credentials"
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) find(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *fakeUserStore) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (s *fakeUserStore) LinkGoogle(_ context.Context, id uuid.UUID, googleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.GoogleID = &googleID
	return nil
}

func (s *fakeUserStore) UpdateLastLogin(context.Context, uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	return nil
}

type memRefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newMemRefreshTokens() *memRefreshTokens {
	return &memRefreshTokens{tokens: make(map[string]uuid.UUID)}
}

func (m *memRefreshTokens) Save(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *memRefreshTokens) Lookup(_ context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, errors.New("not found")
	}
	return id, nil
}

func (m *memRefreshTokens) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}
