package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/dispatch-console/internal/domain"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
)

const defaultTimeout = 10 * time.Second

const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpCancel = "cancel"
)

const (
	listPath   = "/notifications"
	notifyPath = "/notify"
	itemPath   = "/notify/{id}"
)

// Client talks to the notification backend REST API.
type Client struct {
	client  *resty.Client
	baseURL string
	metrics *observability.Metrics
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewClientWithResty(baseURL, client)
}

func NewClientWithResty(baseURL string, client *resty.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTimeout)
	}
	client.SetRetryCount(0)
	client.SetBaseURL(trimmed)
	client.SetHeader("Accept", "application/json")

	return &Client{
		client:  client,
		baseURL: trimmed,
		now:     time.Now,
	}, nil
}

// WithMetrics records backend call outcomes and latency on m.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	if c != nil {
		c.metrics = m
	}
	return c
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// List fetches the full notification collection. A null body yields an empty slice.
func (c *Client) List(ctx context.Context) ([]domain.Notification, error) {
	body, err := c.do(ctx, OpList, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(listPath)
	})
	if err != nil {
		return nil, err
	}

	var notifications []domain.Notification
	if err := decode(body, &notifications); err != nil {
		return nil, &Error{Kind: KindServerError, Operation: OpList, Message: "invalid response body", Cause: err}
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications, nil
}

func (c *Client) Get(ctx context.Context, id string) (*domain.Notification, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}

	body, err := c.do(ctx, OpGet, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Get(itemPath)
	})
	if err != nil {
		return nil, err
	}

	var notification domain.Notification
	if err := decode(body, &notification); err != nil {
		return nil, &Error{Kind: KindServerError, Operation: OpGet, Message: "invalid response body", Cause: err}
	}
	return &notification, nil
}

// Create submits a new notification. The created record is returned when the backend echoes it.
func (c *Client) Create(ctx context.Context, req domain.CreateNotification) (*domain.Notification, error) {
	body, err := c.do(ctx, OpCreate, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json").SetBody(req).Post(notifyPath)
	})
	if err != nil {
		return nil, err
	}

	var created domain.Notification
	if err := decode(body, &created); err != nil {
		return nil, &Error{Kind: KindServerError, Operation: OpCreate, Message: "invalid response body", Cause: err}
	}
	return &created, nil
}

func (c *Client) Cancel(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}

	_, err := c.do(ctx, OpCancel, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Delete(itemPath)
	})
	return err
}

// Ping reports whether the backend answers the list endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, OpList, func(r *resty.Request) (*resty.Response, error) {
		return r.Get(listPath)
	})
	return err
}

func (c *Client) do(
	ctx context.Context,
	operation string,
	send func(r *resty.Request) (*resty.Response, error),
) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("backend client is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := c.now()
	response, err := send(c.client.R().SetContext(ctx))
	if err != nil {
		c.observe(operation, KindNetworkFailure.String(), start)
		return nil, &Error{
			Kind:      KindNetworkFailure,
			Operation: operation,
			Message:   networkFailureMessage(err),
			Cause:     err,
		}
	}
	if response == nil {
		c.observe(operation, KindNetworkFailure.String(), start)
		return nil, &Error{
			Kind:      KindNetworkFailure,
			Operation: operation,
			Message:   "backend returned empty response",
		}
	}

	if !response.IsSuccess() {
		c.observe(operation, KindServerError.String(), start)
		return nil, &Error{
			Kind:       KindServerError,
			Operation:  operation,
			StatusCode: response.StatusCode(),
			Message:    strings.TrimSpace(response.String()),
		}
	}

	c.observe(operation, "ok", start)
	return response.Body(), nil
}

func (c *Client) observe(operation string, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveBackendCall(operation, outcome, c.now().Sub(start))
}

func decode(body []byte, out any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func networkFailureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "backend did not respond in time"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return "backend is unreachable"
	}
}
