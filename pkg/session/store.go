package session

import (
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Meta is the listing shape of a stored session.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists full conversation histories keyed by session id. Load
// returns (nil, nil) for an unknown id. Which implementation backs a store
// is a construction-time choice of the caller.
type Store interface {
	Load(id string) (*Session, error)
	Save(s *Session) error
	Delete(id string) error
	List() ([]Meta, error)
}

// MemoryStore keeps checkpoints in process memory. Sessions are serialized
// on save so callers never share mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	created  map[string]time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		created:  make(map[string]time.Time),
	}
}

func (s *MemoryStore) Load(id string) (*Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *MemoryStore) Save(sess *Session) error {
	data, err := yaml.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = data
	if _, ok := s.created[sess.ID]; !ok {
		s.created[sess.ID] = sess.CreatedAt
	}
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.created, id)
	return nil
}

func (s *MemoryStore) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	metas := make([]Meta, 0, len(s.sessions))
	for id := range s.sessions {
		metas = append(metas, Meta{ID: id, CreatedAt: s.created[id]})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].CreatedAt.Before(metas[j].CreatedAt) })
	return metas, nil
}
