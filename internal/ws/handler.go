package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/api/middleware"
	"github.com/GriffinCanCode/modshell/internal/app"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
)

const (
	outboxSize   = 32
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.IsLoopbackOrigin(origin)
	},
}

// Message is a client request
type Message struct {
	Type         string `json:"type"`
	GUID         string `json:"guid,omitempty"`
	Parameter    any    `json:"parameter,omitempty"`
	ClearHistory bool   `json:"clear_history,omitempty"`
}

// Reply is a server message
type Reply struct {
	Type      string             `json:"type"`
	Message   string             `json:"message,omitempty"`
	Event     *navigation.Event  `json:"event,omitempty"`
	Outcome   navigation.Outcome `json:"outcome,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	shell   *app.Shell
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(shell *app.Shell, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		shell:   shell,
		metrics: metrics,
		logger:  logging.OrNop(logger).Named("ws"),
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	outbox := make(chan Reply, outboxSize)
	writerDone := make(chan struct{})
	go h.write(ctx, cancel, conn, outbox, writerDone)
	defer func() { <-writerDone }()
	defer cancel()

	unsubscribe := h.shell.Navigator().Subscribe(func(ev navigation.Event) {
		select {
		case outbox <- Reply{Type: "navigated", Event: &ev, Timestamp: time.Now().Unix()}:
		default:
			h.logger.Debug("Dropping navigation event for slow client", zap.String("guid", ev.GUID.String()))
		}
	})
	defer unsubscribe()

	send := func(r Reply) {
		r.Timestamp = time.Now().Unix()
		select {
		case outbox <- r:
		case <-ctx.Done():
		}
	}
	send(Reply{Type: "system", Message: "Connected to modshell navigation stream"})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			send(Reply{Type: "pong"})
		case "navigate":
			send(h.navigate(ctx, msg))
		case "back":
			err := h.shell.Invoke(ctx, func(ctx context.Context) error {
				return h.shell.Navigator().GoBack(ctx)
			})
			if err != nil {
				send(Reply{Type: "error", Message: err.Error()})
			}
		default:
			send(Reply{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Handler) navigate(ctx context.Context, msg Message) Reply {
	var opts []navigation.Option
	if msg.Parameter != nil {
		opts = append(opts, navigation.WithParameter(msg.Parameter))
	}
	if msg.ClearHistory {
		opts = append(opts, navigation.WithClearHistory())
	}
	outcome, err := h.shell.Navigate(ctx, msg.GUID, opts...)
	if err != nil {
		return Reply{Type: "error", Message: err.Error(), Outcome: outcome}
	}
	return Reply{Type: "outcome", Outcome: outcome}
}

// write is the only goroutine writing to conn
func (h *Handler) write(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbox <-chan Reply, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case r := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(r); err != nil {
				h.logger.Debug("WebSocket write error", zap.Error(err))
				cancel()
				conn.Close() // unblocks the reader
				return
			}
			h.metrics.RecordWSMessage("out", r.Type)
		}
	}
}
