// Package transcript owns the ordered message log of one conversation thread
// and mediates submission of new input to the agent.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/chat-bridge/internal/domain/models"
)

// User-facing texts for failed exchanges.
const (
	FailedMessageText    = "Sorry, I couldn't process your message. Please try again."
	FailedSchedulingText = "Sorry, I couldn't process your scheduling request. Please try again."
)

var (
	// ErrEmptyInput is returned when the submitted text is blank.
	ErrEmptyInput = errors.New("message is empty")
	// ErrSubmissionInFlight is returned while another exchange is pending.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrInvalidContinuation is returned when a continuation payload cannot
	// be turned into a confirmation message.
	ErrInvalidContinuation = errors.New("invalid continuation payload")
)

// Exchanger performs one request/response cycle with the backend agent.
type Exchanger interface {
	Exchange(ctx context.Context, token, threadID, message string) (*models.AgentResponse, error)
}

// EventType describes a transcript change.
type EventType string

const (
	EventAppended EventType = "appended"
	EventRemoved  EventType = "removed"
	EventUpdated  EventType = "updated"
)

// Event is delivered to listeners after every transcript change.
type Event struct {
	Type     EventType       `json:"type"`
	ThreadID string          `json:"threadId"`
	Message  *models.Message `json:"message"`
	Loading  bool            `json:"loading"`
}

// Listener receives transcript events. It must not block.
type Listener func(Event)

// Config holds the configuration for a transcript store.
type Config struct {
	ThreadID        string
	Exchanger       Exchanger
	ExchangeTimeout time.Duration
	Greeting        string
	Logger          *zerolog.Logger
}

// Store is the transcript of a single thread. It is safe for concurrent use.
type Store struct {
	threadID  string
	exchanger Exchanger
	timeout   time.Duration
	logger    zerolog.Logger

	mu        sync.Mutex
	messages  []*models.Message
	inFlight  bool
	idle      chan struct{} // closed when the in-flight exchange ends
	listeners map[int]Listener
	nextID    int
}

// submission describes one outbound exchange.
type submission struct {
	text           string
	echo           bool
	action         models.LoadingAction
	failureText    string
	resolveMessage string
	// queue waits for an in-flight exchange instead of being rejected.
	queue          bool
}

// NewStore creates a transcript store for a thread.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.ThreadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}
	if cfg.Exchanger == nil {
		return nil, fmt.Errorf("exchanger is required")
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Store{
		threadID:  cfg.ThreadID,
		exchanger: cfg.Exchanger,
		timeout:   cfg.ExchangeTimeout,
		logger:    logger.With().Str("thread_id", cfg.ThreadID).Logger(),
		listeners: make(map[int]Listener),
	}

	if cfg.Greeting != "" {
		s.messages = append(s.messages, models.NewMessage(cfg.ThreadID, models.OriginAgent, models.PhaseDelivered, cfg.Greeting))
	}

	return s, nil
}

// ThreadID returns the thread this store belongs to.
func (s *Store) ThreadID() string {
	return s.threadID
}

// Submit sends the user's text to the agent. Blank input and input arriving
// while another exchange is pending are rejected without touching the
// transcript. Exchange failures never surface as errors: they become a
// failed message in the transcript.
func (s *Store) Submit(ctx context.Context, token, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	return s.submit(ctx, token, submission{
		text:        text,
		echo:        true,
		action:      models.LoadingActionDefault,
		failureText: FailedMessageText,
	})
}

// ContinueAfterAuthorization tells the agent the user approved the preview
// carried by payload. On delivery the source message is marked resolved so
// its confirmation affordance is not offered again. A continuation arriving
// while another exchange is pending waits for it; if ctx ends first the
// transcript gets a failed message instead.
func (s *Store) ContinueAfterAuthorization(ctx context.Context, token, sourceMessageID string, payload json.RawMessage) (*models.Message, error) {
	preview, err := models.DecodeMeetingPreview(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContinuation, err)
	}

	return s.submit(ctx, token, submission{
		text:           ConfirmationText(preview),
		echo:           false,
		action:         models.LoadingActionBooking,
		failureText:    FailedSchedulingText,
		resolveMessage: sourceMessageID,
		queue:          true,
	})
}

// ConfirmationText renders the approval sentence sent after authorization.
func ConfirmationText(p *models.MeetingPreview) string {
	return fmt.Sprintf(
		"Yes, schedule it!. I am ok with meeting details you provided. Meeting topic %s on %s at %s for %s in time zone %s.",
		p.Topic, p.Date, p.StartTime, p.Duration, p.TimeZone,
	)
}

func (s *Store) submit(ctx context.Context, token string, sub submission) (*models.Message, error) {
	s.mu.Lock()
	for s.inFlight {
		if !sub.queue {
			s.mu.Unlock()
			return nil, ErrSubmissionInFlight
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			s.logger.Warn().Err(ctx.Err()).Msg("gave up waiting for the pending exchange")
			return s.appendFailure(sub.failureText), nil
		}
		s.mu.Lock()
	}
	s.inFlight = true
	s.idle = make(chan struct{})

	var appended []*models.Message
	if sub.echo {
		appended = append(appended, models.NewMessage(s.threadID, models.OriginUser, models.PhaseDelivered, sub.text))
	}
	pending := models.NewMessage(s.threadID, models.OriginAgent, models.PhasePending, "")
	pending.LoadingAction = sub.action
	appended = append(appended, pending)
	s.messages = append(s.messages, appended...)
	s.mu.Unlock()

	for _, m := range appended {
		s.emit(Event{Type: EventAppended, Message: m.Clone(), Loading: true})
	}

	final := s.exchange(ctx, token, sub)

	s.mu.Lock()
	s.removeLocked(pending.ID)
	s.messages = append(s.messages, final)
	var resolved *models.Message
	if final.Phase == models.PhaseDelivered && sub.resolveMessage != "" {
		if source := s.findLocked(sub.resolveMessage); source != nil {
			source.ConfirmationResolved = true
			resolved = source.Clone()
		}
	}
	s.inFlight = false
	close(s.idle)
	s.idle = nil
	s.mu.Unlock()

	s.emit(Event{Type: EventRemoved, Message: pending.Clone(), Loading: false})
	s.emit(Event{Type: EventAppended, Message: final.Clone(), Loading: false})
	if resolved != nil {
		s.emit(Event{Type: EventUpdated, Message: resolved, Loading: false})
	}

	return final.Clone(), nil
}

func (s *Store) appendFailure(text string) *models.Message {
	failed := models.NewMessage(s.threadID, models.OriginAgent, models.PhaseFailed, text)
	s.mu.Lock()
	s.messages = append(s.messages, failed)
	loading := s.inFlight
	s.mu.Unlock()

	s.emit(Event{Type: EventAppended, Message: failed.Clone(), Loading: loading})
	return failed.Clone()
}

// exchange runs the agent call and converts its outcome into the terminal
// agent message.
func (s *Store) exchange(ctx context.Context, token string, sub submission) *models.Message {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.exchanger.Exchange(ctx, token, s.threadID, sub.text)
	if err == nil && resp == nil {
		err = fmt.Errorf("agent returned no response")
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Dur("latency", time.Since(start)).
			Msg("agent exchange failed")
		return models.NewMessage(s.threadID, models.OriginAgent, models.PhaseFailed, sub.failureText)
	}

	s.logger.Debug().
		Dur("latency", time.Since(start)).
		Strs("state_tags", resp.StateTags).
		Bool("requires_authorization", resp.RequiresAuthorization()).
		Msg("agent exchange delivered")

	msg := models.NewMessage(s.threadID, models.OriginAgent, models.PhaseDelivered, resp.ChatText)
	msg.ToolResponse = resp
	return msg
}

// Messages returns a copy of the transcript in order.
func (s *Store) Messages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Message returns a copy of the message with the given id.
func (s *Store) Message(id string) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.findLocked(id); m != nil {
		return m.Clone(), true
	}
	return nil, false
}

// Loading reports whether an exchange is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(e Event) {
	e.ThreadID = s.threadID

	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(e)
	}
}

func (s *Store) findLocked(id string) *models.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Store) removeLocked(id string) {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}
