// Package privilege runs commands as root under a single, reusable authorization.
package privilege

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

// Broker owns the authorization session. It is the only place a session is
// created or invalidated, and concurrent requests share one prompt.
type Broker struct {
	elevator Elevator
	now      func() time.Time

	mu      sync.Mutex
	session *Session
	prompt  singleflight.Group
}

func NewBroker(elevator Elevator) *Broker {
	return &Broker{elevator: elevator, now: time.Now}
}

// Session returns the current valid session, or nil.
func (b *Broker) Session() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session.IsValid() {
		return b.session
	}
	return nil
}

// errPromptAbandoned marks a shared prompt whose initiating caller went away.
var errPromptAbandoned = errors.New("elevation prompt abandoned")

// RequestElevation returns the current session, prompting the user only when there is none.
// Concurrent callers share one prompt. Each waits on its own ctx, and a caller whose ctx is
// still live asks again if the shared prompt was abandoned by the caller that started it.
func (b *Broker) RequestElevation(ctx context.Context) (*Session, error) {
	for {
		if s := b.Session(); s != nil {
			return s, nil
		}

		ch := b.prompt.DoChan("elevate", func() (any, error) {
			return b.authorize(ctx)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			if r.Err == nil {
				return r.Val.(*Session), nil
			}
			if errors.Is(r.Err, errPromptAbandoned) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, r.Err
		}
	}
}

func (b *Broker) authorize(ctx context.Context) (*Session, error) {
	if s := b.Session(); s != nil {
		return s, nil
	}
	if err := b.elevator.Authorize(ctx); err != nil {
		if types.IsCancelled(err) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errPromptAbandoned, err)
			}
			return nil, err
		}
		logger.Warn("elevation refused", "error", err)
		if errors.Is(err, types.ErrAuthorizationDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", types.ErrAuthorizationDenied, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session.IsValid() {
		return b.session, nil
	}
	b.session = newSession(b.now())
	logger.Info("elevation granted", "session", b.session.ID())
	return b.session, nil
}

// Invalidate ends the current session and drops the OS credential cache when possible.
func (b *Broker) Invalidate() {
	b.mu.Lock()
	s := b.session
	b.session = nil
	b.mu.Unlock()

	if s == nil {
		return
	}
	s.invalidate()
	logger.Info("session invalidated", "session", s.ID())
	if r, ok := b.elevator.(Revoker); ok {
		if err := r.Revoke(context.Background()); err != nil {
			logger.Warn("credential revoke failed", "error", err)
		}
	}
}

func (b *Broker) expire(s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.invalidate()
	if b.session == s {
		b.session = nil
	}
	logger.Warn("session expired", "session", s.ID())
}

// RunPrivileged runs a single command under s.
func (b *Broker) RunPrivileged(ctx context.Context, s *Session, cmd Command) error {
	return b.RunPrivilegedBatch(ctx, s, []Command{cmd})[0]
}

// RunPrivilegedBatch runs cmds in one privileged script and returns one result per
// command, in order. It never prompts: a missing or stale session fails every command.
func (b *Broker) RunPrivilegedBatch(ctx context.Context, s *Session, cmds []Command) []error {
	results := make([]error, len(cmds))
	if len(cmds) == 0 {
		return results
	}

	if !b.owns(s) {
		for i := range results {
			results[i] = types.ErrSessionInvalid
		}
		return results
	}

	log := logger.With("session", s.ID())
	for _, cmd := range cmds {
		line := cmd.String()
		s.record(line)
		log.Info("privileged command", "command", line, "fingerprint", cmd.Fingerprint())
	}

	marker := "MM" + strings.ReplaceAll(uuid.NewString(), "-", "")
	output, err := b.elevator.Execute(ctx, buildBatch(marker, cmds))
	if errors.Is(err, types.ErrSessionExpired) {
		b.expire(s)
		for i := range results {
			results[i] = types.ErrSessionExpired
		}
		return results
	}

	results = parseBatch(output, marker, cmds, err)
	for i, r := range results {
		if r != nil {
			log.Warn("privileged command failed", "fingerprint", cmds[i].Fingerprint(), "error", r)
		}
	}
	return results
}

func (b *Broker) owns(s *Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return s.IsValid() && b.session == s
}
