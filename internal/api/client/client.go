// Package client talks to a running shell's diagnostics server. A second
// instance uses it to hand its activation to the first.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	apihttp "github.com/GriffinCanCode/modshell/internal/api/http"
	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/tracing"
)

// ErrUnavailable means no shell answered at the address
var ErrUnavailable = errors.New("no running shell")

// ForwardResult is the answer to a forwarded activation
type ForwardResult struct {
	EventID string `json:"event_id"`
	Handled bool   `json:"handled"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client is a diagnostics API client
type Client struct {
	r *resty.Client
}

// New creates a client for the server at baseURL (http://host:port). Trace
// context in a request's ctx is sent along.
func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			tracing.Inject(req.Context(), req.Header)
			return nil
		})
	return &Client{r: r}
}

// Ping reports whether a shell is answering
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.r.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: health check returned %s", ErrUnavailable, resp.Status())
	}
	return nil
}

// Forward sends an activation to the running shell
func (c *Client) Forward(ctx context.Context, e *activation.Event) (ForwardResult, error) {
	var result ForwardResult
	var failure errorBody
	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(apihttp.ActivateRequest{
			EventID: e.ID.String(),
			Kind:    e.Kind,
			Args:    e.Args,
			Files:   e.Files,
			URI:     e.URI,
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/api/activate")
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return result, fmt.Errorf("forwarded activation rejected (%s): %s", resp.Status(), failure.Error)
	}
	return result, nil
}

// Navigate asks the running shell to show a frame
func (c *Client) Navigate(ctx context.Context, guid string) (navigation.Outcome, error) {
	var result struct {
		Outcome navigation.Outcome `json:"outcome"`
	}
	var failure errorBody
	resp, err := c.r.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&failure).
		Post("/api/navigate/" + url.PathEscape(guid))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return result.Outcome, fmt.Errorf("navigation failed (%s): %s", resp.Status(), failure.Error)
	}
	return result.Outcome, nil
}
