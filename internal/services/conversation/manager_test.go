package conversation_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/unifiedui/chat-bridge/internal/domain/errors"
	"github.com/unifiedui/chat-bridge/internal/domain/models"
	rediscache "github.com/unifiedui/chat-bridge/internal/infrastructure/cache/redis"
	"github.com/unifiedui/chat-bridge/internal/mocks"
	"github.com/unifiedui/chat-bridge/internal/pkg/encryption"
	"github.com/unifiedui/chat-bridge/internal/services/authorization"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
	"github.com/unifiedui/chat-bridge/internal/services/session"
	"github.com/unifiedui/chat-bridge/internal/services/statestore"
	"github.com/unifiedui/chat-bridge/internal/services/transcript"
)

const previewJSON = `{"topic":"Sync","date":"2025-06-01","startTime":"10:00","duration":"30 minutes","timeZone":"UTC"}`

// stateFeed reports the expected tag once authorized is set.
type stateFeed struct {
	authorized atomic.Bool
	polls      atomic.Int32
}

func (f *stateFeed) FetchStates(context.Context, string) ([]string, error) {
	f.polls.Add(1)
	if f.authorized.Load() {
		return []string{authorization.DefaultExpectedState}, nil
	}
	return []string{}, nil
}

type recordingArchiver struct {
	mu       sync.Mutex
	archived []*models.Message
}

func (a *recordingArchiver) Archive(_ string, m *models.Message) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, m)
	return true
}

func (a *recordingArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.archived)
}

type fixture struct {
	mr       *miniredis.Miniredis
	agent    *mocks.MockAgent
	feed     *stateFeed
	tracker  *authorization.Tracker
	creds    session.Credentials
	mirror   *statestore.Mirror
	archiver *recordingArchiver
	manager  *conversation.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client, err := rediscache.NewClient(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)

	f := &fixture{
		mr:       mr,
		agent:    new(mocks.MockAgent),
		feed:     &stateFeed{},
		archiver: &recordingArchiver{},
		mirror:   statestore.NewMirror(client, time.Hour, nil),
	}

	poller, err := authorization.NewPoller(&authorization.Config{
		Fetcher:     f.feed,
		Interval:    2 * time.Millisecond,
		MaxAttempts: 50,
	})
	require.NoError(t, err)
	f.tracker = authorization.NewTracker(poller)

	f.creds, err = session.NewCredentials(&session.Config{CacheClient: client, Encryptor: encryption.NoOpEncryptor{}})
	require.NoError(t, err)

	f.manager, err = conversation.NewManager(&conversation.Config{
		Exchanger:       f.agent,
		Tracker:         f.tracker,
		Credentials:     f.creds,
		Mirror:          f.mirror,
		Archiver:        f.archiver,
		ExchangeTimeout: time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		f.manager.Close()
		client.Close()
		mr.Close()
	})
	return f
}

func (f *fixture) openThread(t *testing.T) (string, string) {
	t.Helper()
	info, err := f.manager.OpenSession(context.Background(), "")
	require.NoError(t, err)
	thread, _, err := f.manager.OpenThread(context.Background(), info.SessionID, "Ana")
	require.NoError(t, err)
	return info.SessionID, thread.ThreadID
}

func TestNewManager_Validation(t *testing.T) {
	_, err := conversation.NewManager(nil)
	assert.Error(t, err)

	_, err = conversation.NewManager(&conversation.Config{Exchanger: new(mocks.MockAgent)})
	assert.ErrorContains(t, err, "authorization tracker is required")
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hello Ana ! How can I help you today?", conversation.Greeting("Ana"))
	assert.Equal(t, "Hello there ! How can I help you today?", conversation.Greeting("  "))
}

func TestOpenSession_ReusesOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.OpenSession(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.SessionID)
	assert.False(t, first.Restored)

	again, err := f.manager.OpenSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)
}

func TestOpenSession_RestoresMirroredState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.mirror.Save(ctx, "session-42", models.SharedStateSnapshot{
		CurrentThreadID:    "thread-old",
		CurrentStateTags:   []string{"FETCHED_HOTELS"},
		ExplanationVisible: true,
	}))

	info, err := f.manager.OpenSession(ctx, "session-42")
	require.NoError(t, err)
	assert.True(t, info.Restored)
	assert.Equal(t, "thread-old", info.Snapshot.CurrentThreadID)

	e, err := f.manager.Explanation("session-42")
	require.NoError(t, err)
	require.NotNil(t, e.Scenario)
	assert.Equal(t, "Hotel Suggestions", e.Scenario.Title)
	assert.NotEmpty(t, e.Points)
}

func TestOpenThread_Greets(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)

	msgs, loading, err := f.manager.Messages(sessionID, threadID)

	require.NoError(t, err)
	assert.False(t, loading)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello Ana ! How can I help you today?", msgs[0].Content)
}

func TestSubmit_UpdatesSharedStateAndArchives(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)

	f.agent.On("Exchange", mock.Anything, "tok", threadID, "find hotels").
		Return(&models.AgentResponse{ChatText: "Here are hotels", StateTags: []string{"FETCHED_HOTELS"}}, nil).Once()

	var mu sync.Mutex
	var kinds []conversation.EventKind
	unsubscribe, err := f.manager.Subscribe(sessionID, func(e conversation.Event) {
		mu.Lock()
		kinds = append(kinds, e.Kind)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	msg, err := f.manager.Submit(context.Background(), sessionID, threadID, "tok", "find hotels")

	require.NoError(t, err)
	assert.Equal(t, models.PhaseDelivered, msg.Phase)

	e, err := f.manager.Explanation(sessionID)
	require.NoError(t, err)
	assert.Equal(t, threadID, e.Snapshot.CurrentThreadID)
	assert.Equal(t, []string{"FETCHED_HOTELS"}, e.Snapshot.CurrentStateTags)
	assert.False(t, e.Snapshot.ExplanationVisible)

	token, err := f.creds.Get(context.Background(), sessionID, threadID)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	// user message and agent reply
	assert.Equal(t, 2, f.archiver.count())

	mu.Lock()
	assert.Contains(t, kinds, conversation.EventExplanation)
	assert.Contains(t, kinds, conversation.EventTranscript)
	mu.Unlock()
	f.agent.AssertExpectations(t)
}

func TestSubmit_Errors(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	ctx := context.Background()

	_, err := f.manager.Submit(ctx, sessionID, threadID, "", "   ")
	assert.True(t, domainerrors.IsValidationError(err))

	_, err = f.manager.Submit(ctx, "missing", threadID, "", "hi")
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = f.manager.Submit(ctx, sessionID, "missing", "", "hi")
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestSubmit_InFlightIsConflict(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	f.agent.On("Exchange", mock.Anything, "", threadID, "first").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&models.AgentResponse{ChatText: "ok"}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.manager.Submit(context.Background(), sessionID, threadID, "", "first")
	}()
	<-entered

	_, err := f.manager.Submit(context.Background(), sessionID, threadID, "", "second")
	assert.True(t, domainerrors.IsConflict(err))

	close(release)
	<-done
}

func deliverPreview(t *testing.T, f *fixture, sessionID, threadID string) *models.Message {
	t.Helper()

	f.agent.On("Exchange", mock.Anything, "tok", threadID, "book a meeting").
		Return(&models.AgentResponse{
			ChatText:            "Please authorize",
			AuthorizationURL:    "https://idp.example.com/authorize?client_id=abc",
			ContinuationPayload: json.RawMessage(previewJSON),
			StateTags:           []string{"BOOKING_PREVIEW_INITIATED"},
		}, nil).Once()

	msg, err := f.manager.Submit(context.Background(), sessionID, threadID, "tok", "book a meeting")
	require.NoError(t, err)
	require.True(t, msg.AwaitsConfirmation())
	return msg
}

func TestStartAuthorization_ContinuesWithCachedToken(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	source := deliverPreview(t, f, sessionID, threadID)

	confirmation := transcript.ConfirmationText(&models.MeetingPreview{
		Topic: "Sync", Date: "2025-06-01", StartTime: "10:00", Duration: "30 minutes", TimeZone: "UTC",
	})
	f.agent.On("Exchange", mock.Anything, "tok", threadID, confirmation).
		Return(&models.AgentResponse{ChatText: "Booked", StateTags: []string{"BOOKING_COMPLETED"}}, nil).Once()

	// The browser starts the wait without a token of its own.
	start, err := f.manager.StartAuthorization(context.Background(), sessionID, threadID, "", source.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://idp.example.com/authorize?client_id=abc&prompt=none", start.TriggerURL)
	assert.Equal(t, authorization.OutcomePending, start.Status.Outcome)

	f.feed.authorized.Store(true)

	select {
	case <-f.tracker.Done(threadID):
	case <-time.After(2 * time.Second):
		t.Fatal("authorization did not complete")
	}

	status, err := f.manager.AuthorizationStatus(sessionID, threadID)
	require.NoError(t, err)
	assert.Equal(t, authorization.OutcomeAuthorized, status.Outcome)

	msgs, _, err := f.manager.Messages(sessionID, threadID)
	require.NoError(t, err)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "Booked", last.Content)

	for _, m := range msgs {
		if m.ID == source.ID {
			assert.True(t, m.ConfirmationResolved)
			assert.False(t, m.AwaitsConfirmation())
		}
		assert.NotEqual(t, confirmation, m.Content, "continuation text is not echoed")
	}

	e, err := f.manager.Explanation(sessionID)
	require.NoError(t, err)
	require.NotNil(t, e.Scenario)
	assert.Equal(t, "User Authorization for Booking", e.Scenario.Title)
	f.agent.AssertExpectations(t)
}

func TestStartAuthorization_ContinuationWaitsForPendingMessage(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	source := deliverPreview(t, f, sessionID, threadID)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.agent.On("Exchange", mock.Anything, "tok", threadID, "what time is it?").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&models.AgentResponse{ChatText: "noon"}, nil).Once()
	confirmation := transcript.ConfirmationText(&models.MeetingPreview{
		Topic: "Sync", Date: "2025-06-01", StartTime: "10:00", Duration: "30 minutes", TimeZone: "UTC",
	})
	f.agent.On("Exchange", mock.Anything, "tok", threadID, confirmation).
		Return(&models.AgentResponse{ChatText: "Booked", StateTags: []string{"BOOKING_COMPLETED"}}, nil).Once()

	_, err := f.manager.StartAuthorization(context.Background(), sessionID, threadID, "", source.ID)
	require.NoError(t, err)

	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		_, _ = f.manager.Submit(context.Background(), sessionID, threadID, "tok", "what time is it?")
	}()
	<-entered

	f.feed.authorized.Store(true)
	require.Eventually(t, func() bool {
		status, err := f.manager.AuthorizationStatus(sessionID, threadID)
		return err == nil && status.Outcome == authorization.OutcomeAuthorized
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	<-submitted

	select {
	case <-f.tracker.Done(threadID):
	case <-time.After(2 * time.Second):
		t.Fatal("continuation did not finish")
	}

	msgs, loading, err := f.manager.Messages(sessionID, threadID)
	require.NoError(t, err)
	assert.False(t, loading)
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, "noon", msgs[len(msgs)-2].Content)
	assert.Equal(t, "Booked", msgs[len(msgs)-1].Content)
	for _, m := range msgs {
		if m.ID == source.ID {
			assert.True(t, m.ConfirmationResolved)
		}
	}
	f.agent.AssertExpectations(t)
}

func TestStartAuthorization_Rejections(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	ctx := context.Background()

	msgs, _, err := f.manager.Messages(sessionID, threadID)
	require.NoError(t, err)
	greeting := msgs[0]

	_, err = f.manager.StartAuthorization(ctx, sessionID, threadID, "", greeting.ID)
	assert.True(t, domainerrors.IsConflict(err))

	_, err = f.manager.StartAuthorization(ctx, sessionID, threadID, "", "missing")
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = f.manager.AuthorizationStatus(sessionID, threadID)
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestCloseThread_CancelsAuthorization(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	source := deliverPreview(t, f, sessionID, threadID)

	_, err := f.manager.StartAuthorization(context.Background(), sessionID, threadID, "", source.ID)
	require.NoError(t, err)
	done := f.tracker.Done(threadID)

	require.NoError(t, f.manager.CloseThread(context.Background(), sessionID, threadID))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("authorization wait still running")
	}

	_, _, err = f.manager.Messages(sessionID, threadID)
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = f.creds.Get(context.Background(), sessionID, threadID)
	assert.ErrorIs(t, err, session.ErrNoCredential)
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	source := deliverPreview(t, f, sessionID, threadID)

	_, err := f.manager.StartAuthorization(context.Background(), sessionID, threadID, "", source.ID)
	require.NoError(t, err)

	cancelled, err := f.manager.CancelAuthorization(sessionID, threadID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	<-f.tracker.Done(threadID)
	status, err := f.manager.AuthorizationStatus(sessionID, threadID)
	require.NoError(t, err)
	assert.Equal(t, authorization.OutcomeCancelled, status.Outcome)
}

func TestExplanationLifecycle(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)

	f.agent.On("Exchange", mock.Anything, "", threadID, "upgrade").
		Return(&models.AgentResponse{ChatText: "Watching", StateTags: []string{"FETCHED_ROOM", "PROCCESING_UPGRADE"}}, nil).Once()
	msg, err := f.manager.Submit(context.Background(), sessionID, threadID, "", "upgrade")
	require.NoError(t, err)

	e, err := f.manager.ShowExplanation(sessionID, threadID, msg.ID)
	require.NoError(t, err)
	assert.True(t, e.Snapshot.ExplanationVisible)
	require.NotNil(t, e.Scenario)
	assert.Equal(t, "Booking Upgrade", e.Scenario.Title)

	e, err = f.manager.ToggleExplanation(sessionID, nil)
	require.NoError(t, err)
	assert.False(t, e.Snapshot.ExplanationVisible)

	require.NoError(t, f.manager.ResetExplanation(sessionID))
	e, err = f.manager.Explanation(sessionID)
	require.NoError(t, err)
	assert.Nil(t, e.Scenario)
	assert.Empty(t, e.Snapshot.CurrentThreadID)

	_, err = f.manager.ShowExplanation(sessionID, threadID, "missing")
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t)
	sessionID, threadID := f.openThread(t)
	ctx := context.Background()

	require.NoError(t, f.creds.Put(ctx, sessionID, threadID, "tok"))
	_, err := f.manager.ToggleExplanation(sessionID, nil)
	require.NoError(t, err)

	require.NoError(t, f.manager.CloseSession(ctx, sessionID))

	_, err = f.manager.Explanation(sessionID)
	assert.True(t, domainerrors.IsNotFound(err))
	_, err = f.creds.Get(ctx, sessionID, threadID)
	assert.ErrorIs(t, err, session.ErrNoCredential)
	_, found, err := f.mirror.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, domainerrors.IsNotFound(f.manager.CloseSession(ctx, sessionID)))
}

func TestCloseSession_EndsSubscriptions(t *testing.T) {
	f := newFixture(t)
	sessionID, _ := f.openThread(t)

	events := make(chan conversation.Event, 4)
	_, err := f.manager.Subscribe(sessionID, func(e conversation.Event) { events <- e })
	require.NoError(t, err)

	require.NoError(t, f.manager.CloseSession(context.Background(), sessionID))

	select {
	case e := <-events:
		assert.Equal(t, conversation.EventClosed, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not told the session closed")
	}
	assert.Empty(t, events)

	_, err = f.manager.Subscribe(sessionID, func(conversation.Event) {})
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestScenarios(t *testing.T) {
	f := newFixture(t)

	assert.Len(t, f.manager.Scenarios(), 4)
}
