package privilege

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the handle for one administrator authorization.
// It lives only in memory and is never persisted.
type Session struct {
	id        string
	createdAt time.Time
	valid     atomic.Bool

	mu       sync.Mutex
	commands []string
	seen     map[string]struct{}
}

func newSession(now time.Time) *Session {
	s := &Session{
		id:        uuid.NewString(),
		createdAt: now,
		seen:      make(map[string]struct{}),
	}
	s.valid.Store(true)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) IsValid() bool {
	return s != nil && s.valid.Load()
}

// Commands returns the distinct commands run under this session, in first-use order.
func (s *Session) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Session) record(command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[command]; ok {
		return
	}
	s.seen[command] = struct{}{}
	s.commands = append(s.commands, command)
}

func (s *Session) invalidate() {
	s.valid.Store(false)
}
