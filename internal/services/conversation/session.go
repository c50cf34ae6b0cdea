package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
	"github.com/unifiedui/chat-bridge/internal/services/statestore"
	"github.com/unifiedui/chat-bridge/internal/services/transcript"
)

// EventKind distinguishes session events.
type EventKind string

const (
	EventExplanation EventKind = "explanation"
	EventTranscript  EventKind = "transcript"
	// EventClosed is the last event of a session. No event follows it.
	EventClosed      EventKind = "closed"
)

// Event is delivered to session subscribers.
type Event struct {
	Kind        EventKind         `json:"kind"`
	Explanation *Explanation      `json:"explanation,omitempty"`
	Transcript  *transcript.Event `json:"transcript,omitempty"`
}

// Explanation is the resolved explanation panel of a session.
type Explanation struct {
	Snapshot models.SharedStateSnapshot `json:"snapshot"`
	Scenario *models.Scenario           `json:"scenario,omitempty"`
	Points   []models.ScenarioPoint     `json:"points,omitempty"`
}

// SessionInfo describes an open session.
type SessionInfo struct {
	SessionID string                     `json:"sessionId"`
	CreatedAt time.Time                  `json:"createdAt"`
	Restored  bool                       `json:"restored"`
	ThreadIDs []string                   `json:"threadIds"`
	Snapshot  models.SharedStateSnapshot `json:"snapshot"`
}

type thread struct {
	info        models.ConversationThread
	store       *transcript.Store
	unsubscribe func()
}

// session is one UI session: a shared state store and its threads.
type session struct {
	id        string
	createdAt time.Time
	restored  bool
	state     *statestore.Store
	detach    []func()

	mu        sync.Mutex
	threads   map[string]*thread
	listeners map[int]func(Event)
	nextID    int
	closed    bool
}

func newSession(id string, state *statestore.Store, restored bool) *session {
	return &session{
		id:        id,
		createdAt: time.Now().UTC(),
		restored:  restored,
		state:     state,
		threads:   make(map[string]*thread),
		listeners: make(map[int]func(Event)),
	}
}

func (s *session) info() *SessionInfo {
	s.mu.Lock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)

	return &SessionInfo{
		SessionID: s.id,
		CreatedAt: s.createdAt,
		Restored:  s.restored,
		ThreadIDs: ids,
		Snapshot:  s.state.Snapshot(),
	}
}

func (s *session) thread(threadID string) (*thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	return t, ok
}

func (s *session) subscribe(fn func(Event)) func() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn(Event{Kind: EventClosed})
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *session) broadcast(e Event) {
	s.mu.Lock()
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(e)
	}
}

// close drops every listener after telling it the session is gone.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listeners = make(map[int]func(Event))
	s.mu.Unlock()

	for _, l := range listeners {
		l(Event{Kind: EventClosed})
	}
}
