// Package statestore holds the explanation state shared by every view of a
// UI session and notifies observers on each change.
package statestore

import (
	"sync"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// Observer receives the snapshot after every write. It runs synchronously
// inside the setter, must not block and must tolerate repeated values.
type Observer func(models.SharedStateSnapshot)

// Store is the state of one UI session. Writes are serialized and
// last-writer-wins.
type Store struct {
	mu        sync.Mutex
	snapshot  models.SharedStateSnapshot
	observers map[int]Observer
	nextID    int
}

// New creates an empty store.
func New() *Store {
	return &Store{observers: make(map[int]Observer)}
}

// NewFromSnapshot creates a store seeded with a previously saved snapshot.
func NewFromSnapshot(s models.SharedStateSnapshot) *Store {
	st := New()
	st.snapshot = s.Clone()
	return st
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() models.SharedStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// SetThread records the thread the UI interacted with last.
func (s *Store) SetThread(threadID string) {
	s.update(func(snap *models.SharedStateSnapshot) {
		snap.CurrentThreadID = threadID
	})
}

// SetStateTags replaces the current state tags.
func (s *Store) SetStateTags(tags []string) {
	s.update(func(snap *models.SharedStateSnapshot) {
		snap.CurrentStateTags = append([]string(nil), tags...)
	})
}

// SetThreadState records a thread's latest tags in a single write.
func (s *Store) SetThreadState(threadID string, tags []string) {
	s.update(func(snap *models.SharedStateSnapshot) {
		snap.CurrentThreadID = threadID
		snap.CurrentStateTags = append([]string(nil), tags...)
	})
}

// SetExplanationVisible sets the panel visibility, or toggles it when
// visible is nil.
func (s *Store) SetExplanationVisible(visible *bool) {
	s.update(func(snap *models.SharedStateSnapshot) {
		if visible == nil {
			snap.ExplanationVisible = !snap.ExplanationVisible
			return
		}
		snap.ExplanationVisible = *visible
	})
}

// Show points the panel at a thread's tags and makes it visible in a single
// write, so observers never see a half-applied state.
func (s *Store) Show(threadID string, tags []string) {
	s.update(func(snap *models.SharedStateSnapshot) {
		snap.CurrentThreadID = threadID
		snap.CurrentStateTags = append([]string(nil), tags...)
		snap.ExplanationVisible = true
	})
}

// Reset clears every field.
func (s *Store) Reset() {
	s.update(func(snap *models.SharedStateSnapshot) {
		*snap = models.SharedStateSnapshot{}
	})
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) update(apply func(*models.SharedStateSnapshot)) {
	s.mu.Lock()
	apply(&s.snapshot)
	snap := s.snapshot.Clone()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap.Clone())
	}
}
