package session

import (
	"context"
	"sync"
	"time"

	"minimart/internal/model"
	"minimart/pkg/uid"
)

// retention is how long an expired session is kept around so that a late
// validation still reports ErrExpired rather than ErrNotFound. After
// retention the janitor drops the entry entirely.
const retention = 24 * time.Hour

// MemoryStore is the default in-process session store: a map of tokens
// guarded by a mutex, with a background janitor sweeping entries that no
// validation call ever touches again.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session

	timeout time.Duration
	now     func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewMemoryStore creates a memory store with a running janitor. A
// timeout of zero selects DefaultTimeout.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &MemoryStore{
		sessions:        make(map[string]*model.Session),
		timeout:         timeout,
		now:             time.Now,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// SetClock replaces the wall clock, for expiry boundary tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create issues a brand-new session token.
func (s *MemoryStore) Create(ctx context.Context, role string, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uid.New()
	s.sessions[token] = &model.Session{
		ID:         token,
		Role:       role,
		UserID:     userID,
		LastActive: s.now(),
	}
	return token, nil
}

// Get validates a token, refreshing last-active on success.
func (s *MemoryStore) Get(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}

	now := s.now()
	if s.stale(sess, now) {
		delete(s.sessions, token)
		return nil, ErrExpired
	}

	sess.LastActive = now
	copied := *sess
	return &copied, nil
}

// Delete removes a session; absent tokens are ignored.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	return nil
}

// stale reports whether the sliding window has elapsed. A session seen
// exactly at the boundary is still active.
func (s *MemoryStore) stale(sess *model.Session, now time.Time) bool {
	return now.Sub(sess.LastActive) > s.timeout
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeStale()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) removeStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, sess := range s.sessions {
		if now.Sub(sess.LastActive) > retention {
			delete(s.sessions, token)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
