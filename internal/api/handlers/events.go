package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/unifiedui/chat-bridge/internal/api/middleware"
	"github.com/unifiedui/chat-bridge/internal/api/sse"
	"github.com/unifiedui/chat-bridge/internal/services/conversation"
)

const (
	eventBuffer  = 64
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	defaultPing  = 25 * time.Second
	overflowCode = "EVENTS_OVERFLOW"
	closedCode   = "SESSION_CLOSED"

	// reconnectDelay is the browser's EventSource retry hint.
	reconnectDelay = 3 * time.Second
)

// EventsConfig holds the streaming configuration.
type EventsConfig struct {
	// KeepAlive is the SSE comment and websocket ping interval.
	KeepAlive time.Duration
	// CheckOrigin decides which browser origins may open a websocket.
	CheckOrigin func(origin string) bool
}

// EventsHandler streams session events over SSE and websockets.
type EventsHandler struct {
	manager   *conversation.Manager
	keepAlive time.Duration
	upgrader  websocket.Upgrader
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(manager *conversation.Manager, cfg EventsConfig) *EventsHandler {
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultPing
	}
	checkOrigin := cfg.CheckOrigin

	return &EventsHandler{
		manager:   manager,
		keepAlive: keepAlive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || checkOrigin == nil {
					return true
				}
				return checkOrigin(origin)
			},
		},
	}
}

// OutgoingMessage is the websocket envelope.
type OutgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// subscription buffers session events for one stream. A consumer that falls
// behind by a full buffer is disconnected and must refetch.
type subscription struct {
	events     chan conversation.Event
	overflow   chan struct{}
	closed     chan struct{}
	overflowed sync.Once
	cancel     func()
}

func (h *EventsHandler) subscribe(sessionID string) (*subscription, error) {
	sub := &subscription{
		events:   make(chan conversation.Event, eventBuffer),
		overflow: make(chan struct{}),
		closed:   make(chan struct{}),
	}
	cancel, err := h.manager.Subscribe(sessionID, func(e conversation.Event) {
		if e.Kind == conversation.EventClosed {
			close(sub.closed)
			return
		}
		select {
		case sub.events <- e:
		default:
			sub.overflowed.Do(func() { close(sub.overflow) })
		}
	})
	if err != nil {
		return nil, err
	}
	sub.cancel = cancel
	return sub, nil
}

func eventPayload(e conversation.Event) (sse.EventType, interface{}) {
	if e.Kind == conversation.EventTranscript {
		return sse.EventTranscript, e.Transcript
	}
	return sse.EventExplanation, e.Explanation
}

// Stream handles GET /sessions/{sessionId}/events
// @Summary Stream session events
// @Description Server-Sent Events stream of explanation and transcript updates. The first event is "ready" with the current explanation panel.
// @Tags Events
// @Produce text/event-stream
// @Param sessionId path string true "Session ID"
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	sc := middleware.GetSessionContext(c)
	logger := middleware.GetRequestLogger(c)

	sub, err := h.subscribe(sc.SessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer sub.cancel()
	current, err := h.manager.Explanation(sc.SessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	writer, err := sse.NewWriter(c.Writer)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)

	ready, err := json.Marshal(current)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if err := writer.Write(sse.Frame{Event: sse.EventReady, Data: string(ready), Retry: reconnectDelay}); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	var seq int
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.overflow:
			logger.Warn().Msg("event stream fell behind, closing")
			_ = writer.WriteError(overflowCode, "event stream fell behind", "reconnect and refetch")
			return
		case <-sub.closed:
			_ = writer.WriteError(closedCode, "session closed", sc.SessionID)
			return
		case <-ticker.C:
			if err := writer.WriteComment("keep-alive"); err != nil {
				return
			}
		case e := <-sub.events:
			seq++
			kind, payload := eventPayload(e)
			if err := writer.WriteJSON(kind, strconv.Itoa(seq), payload); err != nil {
				logger.Debug().Err(err).Msg("event stream closed by client")
				return
			}
		}
	}
}

// WebSocket handles GET /sessions/{sessionId}/ws
// @Summary Stream session events over a websocket
// @Description Same events as the SSE stream wrapped in {type, sessionId, data, timestamp} envelopes. Inbound messages are ignored.
// @Tags Events
// @Param sessionId path string true "Session ID"
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 101 {string} string "switching protocols"
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/chat-bridge/sessions/{sessionId}/ws [get]
func (h *EventsHandler) WebSocket(c *gin.Context) {
	sc := middleware.GetSessionContext(c)
	logger := middleware.GetRequestLogger(c)

	sub, err := h.subscribe(sc.SessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer sub.cancel()
	current, err := h.manager.Explanation(sc.SessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.readLoop(conn, cancel, logger)

	send := func(kind string, data interface{}) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(OutgoingMessage{
			Type:      kind,
			SessionID: sc.SessionID,
			Data:      data,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	if err := send(string(sse.EventReady), current); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.overflow:
			logger.Warn().Msg("websocket fell behind, closing")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, overflowCode),
				time.Now().Add(writeWait))
			return
		case <-sub.closed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, closedCode),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case e := <-sub.events:
			kind, payload := eventPayload(e)
			if err := send(string(kind), payload); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// readLoop drains inbound frames so control frames are processed, and
// cancels the stream when the peer goes away.
func (h *EventsHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, logger zerolog.Logger) {
	defer cancel()

	wait := pongWait
	if 2*h.keepAlive > wait {
		wait = 2 * h.keepAlive
	}
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
