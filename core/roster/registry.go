package roster

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrSessionNotFound = errors.New("import session not found")

// Registry keeps the import sessions of all operators.
// Sessions idle for longer than the TTL are evicted, unless committing.
type Registry struct {
	extractor *Extractor
	committer *Committer
	ttl       time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(extractor *Extractor, committer *Committer, ttl time.Duration) *Registry {
	return &Registry{
		extractor: extractor,
		committer: committer,
		ttl:       ttl,
		sessions:  make(map[string]*Session),
	}
}

// New creates an Idle session owned by `ownerID`.
func (r *Registry) New(ownerID string) *Session {
	sess := NewSession(ownerID, r.extractor, r.committer)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evict(time.Now().UTC())
	r.sessions[sess.ID] = sess
	return sess
}

// Get returns the session `id` if it belongs to `ownerID`.
func (r *Registry) Get(id, ownerID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || sess.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	sess.touch()
	return sess, nil
}

// Remove discards and forgets the session `id`.
func (r *Registry) Remove(id, ownerID string) error {
	sess, err := r.Get(id, ownerID)
	if err != nil {
		return err
	}
	if err := sess.Discard(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict removes expired sessions and returns how many were removed.
func (r *Registry) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evict(time.Now().UTC())
}

// Run evicts expired sessions every `interval` until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}

// must hold r.mu
func (r *Registry) evict(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var n int
	for id, sess := range r.sessions {
		if sess.State() == StateCommitting {
			continue
		}
		if now.Sub(sess.UpdatedAt()) > r.ttl {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
