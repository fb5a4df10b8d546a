package document

import (
	"context"
	"log"
	"sync"

	"github.com/jonathan/cv-builder/internal/types"
)

// Store persists whole documents keyed by session. Every save is a full
// overwrite.
type Store interface {
	Load(ctx context.Context, sessionID string) (types.CVDocument, error)
	Save(ctx context.Context, sessionID string, doc types.CVDocument) error
	Reset(ctx context.Context, sessionID string) error
}

// Session is the single writer of one session's document. Mutations are
// serialized, and a successor snapshot is only published once it has been
// persisted.
type Session struct {
	id      string
	store   Store
	mu      sync.Mutex
	current types.CVDocument
}

// NewSession wraps an already loaded document.
func NewSession(id string, doc types.CVDocument, store Store) *Session {
	doc.Normalize()
	return &Session{id: id, store: store, current: Clone(doc)}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current document.
func (s *Session) Snapshot() types.CVDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.current)
}

// Apply runs the mutations, persists the result and publishes it. On any
// failure the previous snapshot stays current.
func (s *Session) Apply(ctx context.Context, mutations ...Mutation) (types.CVDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Apply(s.current, mutations...)
	if err != nil {
		return Clone(s.current), err
	}
	next.Normalize()

	if err := s.store.Save(ctx, s.id, next); err != nil {
		log.Printf("[STORAGE] failed to persist session %s: %v", s.id, err)
		return Clone(s.current), &PersistError{SessionID: s.id, Cause: err}
	}

	s.current = next
	return Clone(next), nil
}

// Reset clears stored data and returns to the default document.
func (s *Session) Reset(ctx context.Context) (types.CVDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reset(ctx, s.id); err != nil {
		return Clone(s.current), &PersistError{SessionID: s.id, Cause: err}
	}
	s.current = Default()
	return Clone(s.current), nil
}

// Registry hands out one Session per session id, loading lazily from the store.
type Registry struct {
	store    Store
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, loading its document on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	doc, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s := NewSession(id, doc, r.store)
	r.sessions[id] = s
	return s, nil
}

// Forget drops the in-memory session; the stored document is kept.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of loaded sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
