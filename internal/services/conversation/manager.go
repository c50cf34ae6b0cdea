// Package conversation wires transcripts, authorization waits, shared
// explanation state and scenario resolution into UI sessions.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
	"github.com/unifiedui/chat-bridge/internal/services/authorization"
	"github.com/unifiedui/chat-bridge/internal/services/scenario"
	credsession "github.com/unifiedui/chat-bridge/internal/services/session"
	"github.com/unifiedui/chat-bridge/internal/services/statestore"
	"github.com/unifiedui/chat-bridge/internal/services/transcript"
)

const credentialTimeout = 5 * time.Second

// MessageArchiver stores terminal messages.
type MessageArchiver interface {
	Archive(sessionID string, m *models.Message) bool
}

// Config holds the dependencies of a Manager.
type Config struct {
	Exchanger       transcript.Exchanger
	Tracker         *authorization.Tracker
	Resolver        *scenario.Resolver
	Credentials     credsession.Credentials
	Mirror          *statestore.Mirror
	Archiver        MessageArchiver
	ExchangeTimeout time.Duration
	ExpectedState   string
	Logger          *zerolog.Logger
}

// Manager owns every open session.
type Manager struct {
	exchanger       transcript.Exchanger
	tracker         *authorization.Tracker
	resolver        *scenario.Resolver
	credentials     credsession.Credentials
	mirror          *statestore.Mirror
	archiver        MessageArchiver
	exchangeTimeout time.Duration
	expectedState   string
	logger          zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewManager creates a manager.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Exchanger == nil {
		return nil, fmt.Errorf("exchanger is required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("authorization tracker is required")
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credentials cache is required")
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = scenario.NewResolver(scenario.DefaultCatalog())
	}
	mirror := cfg.Mirror
	if mirror == nil {
		mirror = statestore.NewMirror(nil, 0, nil)
	}
	expected := cfg.ExpectedState
	if expected == "" {
		expected = authorization.DefaultExpectedState
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Manager{
		exchanger:       cfg.Exchanger,
		tracker:         cfg.Tracker,
		resolver:        resolver,
		credentials:     cfg.Credentials,
		mirror:          mirror,
		archiver:        cfg.Archiver,
		exchangeTimeout: cfg.ExchangeTimeout,
		expectedState:   expected,
		logger:          logger,
		sessions:        make(map[string]*session),
	}, nil
}

// Greeting is the first agent message of a new thread.
func Greeting(userName string) string {
	name := strings.TrimSpace(userName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hello %s ! How can I help you today?", name)
}

// OpenSession returns the session with sessionID, creating it when needed.
// A new session with a known id resumes its mirrored explanation state.
// An empty sessionID creates a fresh session.
func (m *Manager) OpenSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if sessionID != "" {
		m.mu.RLock()
		s, ok := m.sessions[sessionID]
		m.mu.RUnlock()
		if ok {
			return s.info(), nil
		}
	} else {
		sessionID = uuid.NewString()
	}

	state := statestore.New()
	restored := false
	snap, found, err := m.mirror.Load(ctx, sessionID)
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("ignoring unreadable session snapshot")
	} else if found {
		state = statestore.NewFromSnapshot(snap)
		restored = true
	}

	s := newSession(sessionID, state, restored)
	s.detach = append(s.detach,
		m.mirror.Attach(sessionID, state),
		state.Subscribe(func(snap models.SharedStateSnapshot) {
			e := m.explain(snap)
			s.broadcast(Event{Kind: EventExplanation, Explanation: &e})
		}),
	)

	m.mu.Lock()
	if existing, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		for _, d := range s.detach {
			d()
		}
		return existing.info(), nil
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.logger.Info().Str("session_id", sessionID).Bool("restored", restored).Msg("session opened")
	return s.info(), nil
}

// CloseSession closes every thread of a session and drops its cached state.
func (m *Manager) CloseSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return domainerrors.NewNotFoundError("session", sessionID)
	}

	m.shutdownSession(s)

	if err := m.credentials.ForgetSession(ctx, sessionID); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to drop session credentials")
	}
	if err := m.mirror.Delete(ctx, sessionID); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to drop session snapshot")
	}

	m.logger.Info().Str("session_id", sessionID).Msg("session closed")
	return nil
}

func (m *Manager) shutdownSession(s *session) {
	for _, d := range s.detach {
		d()
	}

	s.mu.Lock()
	threads := make([]*thread, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, t)
	}
	s.threads = make(map[string]*thread)
	s.mu.Unlock()

	for _, t := range threads {
		t.unsubscribe()
		m.tracker.Forget(t.info.ThreadID)
	}
	s.close()
}

// OpenThread starts a new conversation in a session.
func (m *Manager) OpenThread(_ context.Context, sessionID, userName string) (*models.ConversationThread, []*models.Message, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, nil, err
	}

	info := models.NewConversationThread(sessionID)
	store, err := transcript.NewStore(&transcript.Config{
		ThreadID:        info.ThreadID,
		Exchanger:       m.exchanger,
		ExchangeTimeout: m.exchangeTimeout,
		Greeting:        Greeting(userName),
		Logger:          &m.logger,
	})
	if err != nil {
		return nil, nil, domainerrors.NewInternalError("failed to open thread", err)
	}

	t := &thread{info: *info, store: store}
	t.unsubscribe = store.Subscribe(func(e transcript.Event) {
		m.onTranscriptEvent(s, e)
	})

	s.mu.Lock()
	s.threads[info.ThreadID] = t
	s.mu.Unlock()

	m.logger.Info().Str("session_id", sessionID).Str("thread_id", info.ThreadID).Msg("thread opened")
	return info, store.Messages(), nil
}

// CloseThread cancels a thread's authorization wait and drops it.
func (m *Manager) CloseThread(ctx context.Context, sessionID, threadID string) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	t, ok := s.threads[threadID]
	delete(s.threads, threadID)
	s.mu.Unlock()
	if !ok {
		return domainerrors.NewNotFoundError("thread", threadID)
	}

	t.unsubscribe()
	m.tracker.Forget(threadID)
	if err := m.credentials.Forget(ctx, sessionID, threadID); err != nil {
		m.logger.Warn().Err(err).Str("thread_id", threadID).Msg("failed to drop thread credential")
	}
	return nil
}

// Messages returns the transcript of a thread and whether an exchange is in
// flight.
func (m *Manager) Messages(sessionID, threadID string) ([]*models.Message, bool, error) {
	t, err := m.thread(sessionID, threadID)
	if err != nil {
		return nil, false, err
	}
	return t.store.Messages(), t.store.Loading(), nil
}

// Submit sends user input to the agent and returns the terminal agent
// message. token is forwarded to the agent and cached for the thread so a
// later continuation can reuse it.
func (m *Manager) Submit(ctx context.Context, sessionID, threadID, token, text string) (*models.Message, error) {
	t, err := m.thread(sessionID, threadID)
	if err != nil {
		return nil, err
	}

	m.rememberToken(ctx, sessionID, threadID, token)

	msg, err := t.store.Submit(ctx, token, text)
	switch {
	case errors.Is(err, transcript.ErrEmptyInput):
		return nil, domainerrors.NewValidationError("message content is required", "")
	case errors.Is(err, transcript.ErrSubmissionInFlight):
		return nil, domainerrors.NewConflictError("a message is already being processed", threadID)
	case err != nil:
		return nil, domainerrors.NewInternalError("failed to submit message", err)
	}
	return msg, nil
}

// AuthorizationStart is the result of StartAuthorization.
type AuthorizationStart struct {
	Status authorization.Status `json:"status"`
	// TriggerURL is the silent authorization URL the browser loads in a
	// hidden frame.
	TriggerURL string `json:"triggerUrl"`
}

// StartAuthorization begins waiting for the consent step of messageID.
// Once the agent reports the expected state, the continuation is sent in
// the background with the thread's cached token.
func (m *Manager) StartAuthorization(ctx context.Context, sessionID, threadID, token, messageID string) (*AuthorizationStart, error) {
	t, err := m.thread(sessionID, threadID)
	if err != nil {
		return nil, err
	}

	msg, ok := t.store.Message(messageID)
	if !ok {
		return nil, domainerrors.NewNotFoundError("message", messageID)
	}
	if !msg.AwaitsConfirmation() {
		return nil, domainerrors.NewConflictError("message does not await authorization", messageID)
	}

	payload := msg.ToolResponse.ContinuationPayload
	if _, err := models.DecodeMeetingPreview(payload); err != nil {
		return nil, domainerrors.NewValidationError("message has no usable booking preview", err.Error())
	}
	triggerURL, err := authorization.SilentURL(msg.ToolResponse.AuthorizationURL)
	if err != nil {
		return nil, domainerrors.NewValidationError("message has an invalid authorization url", err.Error())
	}

	m.rememberToken(ctx, sessionID, threadID, token)

	store := t.store
	status, err := m.tracker.Start(authorization.Request{
		ThreadID:         threadID,
		MessageID:        messageID,
		AuthorizationURL: msg.ToolResponse.AuthorizationURL,
		ExpectedState:    m.expectedState,
		OnAuthorized: func(ctx context.Context) {
			m.continueAfterAuthorization(ctx, store, sessionID, messageID, payload)
		},
	})
	if err != nil {
		return nil, domainerrors.NewServiceUnavailableError("authorization", err)
	}

	return &AuthorizationStart{Status: status, TriggerURL: triggerURL}, nil
}

func (m *Manager) continueAfterAuthorization(ctx context.Context, store *transcript.Store, sessionID, messageID string, payload []byte) {
	logger := m.logger.With().Str("session_id", sessionID).Str("thread_id", store.ThreadID()).Logger()

	token, err := m.credentials.Get(ctx, sessionID, store.ThreadID())
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without a cached credential")
	}

	msg, err := store.ContinueAfterAuthorization(ctx, token, messageID, payload)
	if err != nil {
		logger.Error().Err(err).Msg("failed to continue after authorization")
		return
	}
	logger.Info().Str("phase", string(msg.Phase)).Msg("continuation finished")
}

// AuthorizationStatus returns the latest authorization wait of a thread.
func (m *Manager) AuthorizationStatus(sessionID, threadID string) (authorization.Status, error) {
	if _, err := m.thread(sessionID, threadID); err != nil {
		return authorization.Status{}, err
	}
	status, ok := m.tracker.Status(threadID)
	if !ok {
		return authorization.Status{}, domainerrors.NewNotFoundError("authorization", threadID)
	}
	return status, nil
}

// CancelAuthorization stops a thread's authorization wait. It reports
// whether a wait was running.
func (m *Manager) CancelAuthorization(sessionID, threadID string) (bool, error) {
	if _, err := m.thread(sessionID, threadID); err != nil {
		return false, err
	}
	return m.tracker.Cancel(threadID), nil
}

// Explanation returns the session's explanation panel.
func (m *Manager) Explanation(sessionID string) (*Explanation, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	e := m.explain(s.state.Snapshot())
	return &e, nil
}

// ShowExplanation points the panel at the tags of one agent message and
// makes it visible.
func (m *Manager) ShowExplanation(sessionID, threadID, messageID string) (*Explanation, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	t, ok := s.thread(threadID)
	if !ok {
		return nil, domainerrors.NewNotFoundError("thread", threadID)
	}
	msg, ok := t.store.Message(messageID)
	if !ok {
		return nil, domainerrors.NewNotFoundError("message", messageID)
	}

	var tags []string
	if msg.ToolResponse != nil {
		tags = msg.ToolResponse.StateTags
	}
	s.state.Show(threadID, tags)

	e := m.explain(s.state.Snapshot())
	return &e, nil
}

// ToggleExplanation sets the panel visibility, or flips it when visible is
// nil.
func (m *Manager) ToggleExplanation(sessionID string, visible *bool) (*Explanation, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.state.SetExplanationVisible(visible)
	e := m.explain(s.state.Snapshot())
	return &e, nil
}

// ResetExplanation clears the session's shared state.
func (m *Manager) ResetExplanation(sessionID string) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	s.state.Reset()
	return nil
}

// Subscribe streams explanation and transcript events of a session until
// the returned function is called or the session closes, which is
// announced with an EventClosed event.
func (m *Manager) Subscribe(sessionID string, fn func(Event)) (func(), error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.subscribe(fn), nil
}

// Scenarios returns the explanation catalog.
func (m *Manager) Scenarios() []models.Scenario {
	return m.resolver.Catalog()
}

// Close shuts every session down and waits for background continuations.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.shutdownSession(s)
	}
	m.tracker.Close()
}

func (m *Manager) onTranscriptEvent(s *session, e transcript.Event) {
	if e.Message != nil && e.Type != transcript.EventRemoved {
		if e.Type == transcript.EventAppended && e.Message.Phase == models.PhaseDelivered && e.Message.ToolResponse.HasStateTags() {
			s.state.SetThreadState(e.ThreadID, e.Message.ToolResponse.StateTags)
		}
		if m.archiver != nil && e.Message.IsTerminal() {
			m.archiver.Archive(s.id, e.Message)
		}
	}

	ev := e
	s.broadcast(Event{Kind: EventTranscript, Transcript: &ev})
}

func (m *Manager) explain(snap models.SharedStateSnapshot) Explanation {
	e := Explanation{Snapshot: snap}
	if sc := m.resolver.Resolve(snap.CurrentStateTags); sc != nil {
		e.Scenario = sc
		e.Points = scenario.ParseDetails(sc.Details)
	}
	return e
}

func (m *Manager) rememberToken(ctx context.Context, sessionID, threadID, token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), credentialTimeout)
	defer cancel()
	if err := m.credentials.Put(ctx, sessionID, threadID, token); err != nil {
		m.logger.Warn().Err(err).Str("thread_id", threadID).Msg("failed to cache credential")
	}
}

func (m *Manager) session(sessionID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domainerrors.NewNotFoundError("session", sessionID)
	}
	return s, nil
}

func (m *Manager) thread(sessionID, threadID string) (*thread, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	t, ok := s.thread(threadID)
	if !ok {
		return nil, domainerrors.NewNotFoundError("thread", threadID)
	}
	return t, nil
}
