package authorization

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTrackerClosed is returned by Start after Close.
var ErrTrackerClosed = errors.New("authorization tracker is closed")

// Status is a snapshot of one thread's authorization wait.
type Status struct {
	ThreadID         string     `json:"threadId"`
	MessageID        string     `json:"messageId"`
	AuthorizationURL string     `json:"authorizationUrl"`
	Outcome          Outcome    `json:"outcome"`
	Attempts         int        `json:"attempts"`
	MaxAttempts      int        `json:"maxAttempts"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

// Request describes an authorization wait to start.
type Request struct {
	ThreadID         string
	MessageID        string
	AuthorizationURL string
	ExpectedState    string
	// OnAuthorized runs once on a match. Its context outlives the wait and is
	// cancelled only by Close.
	OnAuthorized func(ctx context.Context)
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	status Status
}

// Tracker keeps at most one running wait per thread. Starting a new wait
// for a thread cancels the previous one.
type Tracker struct {
	poller *Poller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	runs   map[string]*run
	closed bool
}

// NewTracker creates a tracker around the poller.
func NewTracker(poller *Poller) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		poller: poller,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]*run),
	}
}

// Start begins a wait in the background and returns its initial status.
func (t *Tracker) Start(req Request) (Status, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Status{}, ErrTrackerClosed
	}

	if prev, ok := t.runs[req.ThreadID]; ok {
		prev.cancel()
	}

	runCtx, cancel := context.WithCancel(t.ctx)
	r := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		status: Status{
			ThreadID:         req.ThreadID,
			MessageID:        req.MessageID,
			AuthorizationURL: req.AuthorizationURL,
			Outcome:          OutcomePending,
			MaxAttempts:      t.poller.maxAttempts,
			StartedAt:        time.Now().UTC(),
		},
	}
	t.runs[req.ThreadID] = r
	t.wg.Add(1)
	initial := r.status
	t.mu.Unlock()

	go t.watch(runCtx, r, req)

	return initial, nil
}

func (t *Tracker) watch(ctx context.Context, r *run, req Request) {
	defer t.wg.Done()
	defer close(r.done)
	defer r.cancel()

	onAuthorized := func() {
		t.mu.Lock()
		r.status.Outcome = OutcomeAuthorized
		t.mu.Unlock()
		if req.OnAuthorized != nil {
			req.OnAuthorized(t.ctx)
		}
	}
	progress := func(n int) {
		t.mu.Lock()
		r.status.Attempts = n
		t.mu.Unlock()
	}

	res := t.poller.await(ctx, req.ThreadID, req.AuthorizationURL, req.ExpectedState, onAuthorized, progress)

	now := time.Now().UTC()
	t.mu.Lock()
	r.status.Outcome = res.Outcome
	r.status.Attempts = res.Attempts
	r.status.FinishedAt = &now
	t.mu.Unlock()
}

// Status returns the latest wait for a thread.
func (t *Tracker) Status(threadID string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.runs[threadID]
	if !ok {
		return Status{}, false
	}
	return r.status, true
}

// Done returns a channel closed when the latest wait for a thread finishes.
// It returns nil for unknown threads.
func (t *Tracker) Done(threadID string) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.runs[threadID]; ok {
		return r.done
	}
	return nil
}

// Cancel stops the wait for a thread without waiting for it to unwind. It
// reports whether a wait was running.
func (t *Tracker) Cancel(threadID string) bool {
	t.mu.Lock()
	r, ok := t.runs[threadID]
	t.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case <-r.done:
		return false
	default:
	}
	r.cancel()
	return true
}

// Forget cancels and drops the wait for a thread.
func (t *Tracker) Forget(threadID string) {
	t.Cancel(threadID)
	t.mu.Lock()
	delete(t.runs, threadID)
	t.mu.Unlock()
}

// Close cancels every wait and blocks until all of them, including running
// OnAuthorized callbacks, have returned.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}
