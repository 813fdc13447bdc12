package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/modshell/internal/app"
	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/modshell/internal/shared/id"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	shell   *app.Shell
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
	policy  *bluemonday.Policy
}

// NewHandlers creates a new handler set
func NewHandlers(shell *app.Shell, metrics *monitoring.Metrics, tracer *tracing.Tracer, logger *logging.Logger) *Handlers {
	return &Handlers{
		shell:   shell,
		metrics: metrics,
		tracer:  tracer,
		logger:  logging.OrNop(logger).Named("http"),
		policy:  bluemonday.StrictPolicy(),
	}
}

// ActivateRequest is a forwarded activation
type ActivateRequest struct {
	// EventID is the forwarding instance's event ID; a fresh one is used when empty
	EventID string          `json:"event_id,omitempty"`
	Kind    activation.Kind `json:"kind" binding:"required,oneof=launch file protocol"`
	Args    []string        `json:"args"`
	Files   []string        `json:"files"`
	URI     string          `json:"uri"`
}

// NavigateRequest carries optional navigation options
type NavigateRequest struct {
	Parameter    any    `json:"parameter"`
	Transition   string `json:"transition"`
	ClearHistory bool   `json:"clear_history"`
}

// PartView is a part with its construction state
type PartView struct {
	types.PartDescriptor
	Constructed bool `json:"constructed"`
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	build := h.shell.Build()
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"composition": gin.H{
			"build_id":    build.ID,
			"fingerprint": build.Fingerprint,
			"cache_hit":   build.CacheHit,
			"modules":     build.Modules,
			"parts":       build.Parts,
		},
		"stage":    h.shell.Loader().State(),
		"handlers": h.shell.Dispatcher().Len(),
		"frames":   len(h.shell.Navigator().Frames()),
	})
}

// ListParts lists the resolved parts and edges
func (h *Handlers) ListParts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"parts": h.parts(c.Query("contract")),
		"edges": h.shell.Container().Graph().Edges(),
	})
}

func (h *Handlers) parts(contract string) []PartView {
	ctr := h.shell.Container()
	parts := ctr.Graph().Select(func(p types.PartDescriptor) bool {
		return contract == "" || p.Satisfies(contract)
	})
	out := make([]PartView, len(parts))
	for i, p := range parts {
		out[i] = PartView{PartDescriptor: p, Constructed: ctr.Constructed(p.ID)}
	}
	return out
}

// ListFrames lists registered frames and the navigation state
func (h *Handlers) ListFrames(c *gin.Context) {
	nav := h.shell.Navigator()
	frames := nav.Frames()
	for i := range frames {
		frames[i].Title = h.policy.Sanitize(frames[i].Title)
	}

	resp := gin.H{
		"frames":      frames,
		"can_go_back": nav.CanGoBack(),
	}
	if current, ok := nav.Current(); ok {
		resp["current"] = current.GUID
	}
	c.JSON(http.StatusOK, resp)
}

// Stats returns the metrics snapshot
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// Activate dispatches an activation forwarded by a second instance
func (h *Handlers) Activate(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e := activation.NewEvent(req.Kind, req.Args...)
	e.Files = req.Files
	e.URI = req.URI
	e.Redirected = true
	if req.EventID != "" {
		prefix, _, err := id.Split(req.EventID)
		if err != nil || prefix != id.EventPrefix {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid event_id %q", req.EventID)})
			return
		}
		e.ID = id.EventID(req.EventID)
		if created, err := id.Timestamp(req.EventID); err == nil {
			h.logger.Debug("Forwarded activation received",
				zap.String("event_id", req.EventID),
				zap.Duration("delay", time.Since(created)))
		}
	}

	span, ctx := h.tracer.Start(c.Request.Context(), "activation.dispatch")
	span.SetTag("event_id", e.ID.String())
	span.SetTag("kind", string(e.Kind))
	handled, err := h.shell.Activate(ctx, e)
	span.SetTag("handled", strconv.FormatBool(handled))
	span.End(err)
	if err != nil {
		h.logger.Warn("Forwarded activation failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "event_id": e.ID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": e.ID, "handled": handled})
}

// Navigate requests navigation to the frame in the path
func (h *Handlers) Navigate(c *gin.Context) {
	var req NavigateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	opts := []navigation.Option{navigation.WithTransition(req.Transition)}
	if req.Parameter != nil {
		opts = append(opts, navigation.WithParameter(req.Parameter))
	}
	if req.ClearHistory {
		opts = append(opts, navigation.WithClearHistory())
	}

	outcome, err := h.shell.Navigate(c.Request.Context(), c.Param("guid"), opts...)
	switch {
	case errors.Is(err, navigation.ErrInvalidGUID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "outcome": outcome})
	case outcome == navigation.OutcomeUnknown:
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found", "outcome": outcome})
	default:
		c.JSON(http.StatusOK, gin.H{"outcome": outcome})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}
