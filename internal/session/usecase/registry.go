package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamhive/live-backend/internal/models"
)

// sessionEntry is the in-memory state for one stream key. Its mutex
// serializes viewer accounting and state transitions for that key.
type sessionEntry struct {
	mu          sync.Mutex
	session     *models.StreamSession
	ownerID     uuid.UUID
	reservedAt  time.Time
	recoveredAt time.Time
}

func (e *sessionEntry) live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && e.session.State == models.SessionStateLive
}

// sessionRegistry holds every reserved or live stream key. All map mutations
// go through one mutex so reserve is a true insert-if-absent: two concurrent
// publish attempts for the same key or owner cannot both pass.
type sessionRegistry struct {
	mu      sync.Mutex
	byKey   map[string]*sessionEntry
	byOwner map[uuid.UUID]string
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		byKey:   make(map[string]*sessionEntry),
		byOwner: make(map[uuid.UUID]string),
	}
}

// reserve claims streamKey and ownerID. It fails if either is already
// reserved or live.
func (r *sessionRegistry) reserve(streamKey string, ownerID uuid.UUID) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byKey[streamKey]; taken {
		return nil, false
	}
	if _, taken := r.byOwner[ownerID]; taken {
		return nil, false
	}
	entry := &sessionEntry{
		ownerID:    ownerID,
		reservedAt: time.Now(),
	}
	r.byKey[streamKey] = entry
	r.byOwner[ownerID] = streamKey
	return entry, true
}

// insert places an already built session into the registry, used during
// startup recovery. Existing entries win.
func (r *sessionRegistry) insert(session *models.StreamSession) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byKey[session.StreamKey]; taken {
		return nil, false
	}
	if _, taken := r.byOwner[session.OwnerID]; taken {
		return nil, false
	}
	entry := &sessionEntry{
		session:     session,
		ownerID:     session.OwnerID,
		recoveredAt: time.Now(),
	}
	r.byKey[session.StreamKey] = entry
	r.byOwner[session.OwnerID] = session.StreamKey
	return entry, true
}

func (r *sessionRegistry) get(streamKey string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byKey[streamKey]
	return entry, ok
}

func (r *sessionRegistry) remove(streamKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byKey[streamKey]; ok {
		delete(r.byOwner, entry.ownerID)
		delete(r.byKey, streamKey)
	}
}

func (r *sessionRegistry) snapshot() map[string]*sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make(map[string]*sessionEntry, len(r.byKey))
	for key, entry := range r.byKey {
		entries[key] = entry
	}
	return entries
}
