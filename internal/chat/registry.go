package chat

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/errs"
)

const (
	DefaultMaxSessions = 1000
	DefaultIdleTTL     = 30 * time.Minute
)

type RegistryConfig struct {
	Session SessionConfig

	// MaxSessions caps live sessions, IdleTTL evicts untouched ones.
	MaxSessions int
	IdleTTL     time.Duration

	// Now is the registry clock, time.Now when nil.
	Now func() time.Time
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// Registry holds independent sessions keyed by id. Sessions nobody has
// touched for IdleTTL are dropped by Sweep.
type Registry struct {
	cfg RegistryConfig

	mu       sync.RWMutex
	sessions map[string]*registryEntry
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{cfg: cfg, sessions: make(map[string]*registryEntry)}
}

// Create starts a session. Idle sessions are swept first when the registry
// is full; errs.ErrTooManySessions is returned if that frees nothing.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	if len(r.sessions) >= r.cfg.MaxSessions {
		r.sweepLocked(now)
		if len(r.sessions) >= r.cfg.MaxSessions {
			return nil, errs.ErrTooManySessions
		}
	}

	s := NewSession(r.cfg.Session)
	r.sessions[s.ID()] = &registryEntry{session: s, lastSeen: now}
	return s, nil
}

// Get returns the session and marks it as active.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	ent.lastSeen = r.cfg.Now()
	return ent.session, true
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts idle sessions and reports how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.cfg.Now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	n := 0
	for id, ent := range r.sessions {
		if now.Sub(ent.lastSeen) >= r.cfg.IdleTTL {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && r.cfg.Session.Logger != nil {
				r.cfg.Session.Logger.WithField("evicted", n).Info("idle sessions evicted")
			}
		}
	}
}
