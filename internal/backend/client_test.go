package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/dispatch-console/internal/domain"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("", time.Second); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient("not a url", time.Second); err == nil {
		t.Fatal("expected error for invalid base url")
	}
	if _, err := NewClientWithResty("http://localhost:8080", nil); err == nil {
		t.Fatal("expected error for nil resty client")
	}

	c, err := NewClient("http://localhost:8080/api/v1/", 0)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.BaseURL() != "http://localhost:8080/api/v1" {
		t.Fatalf("BaseURL() = %q, want trailing slash trimmed", c.BaseURL())
	}
	if c.client.GetClient().Timeout != defaultTimeout {
		t.Fatalf("timeout = %s, want %s", c.client.GetClient().Timeout, defaultTimeout)
	}
}

func TestClientList(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/v1/notifications" {
			t.Errorf("path = %s, want /api/v1/notifications", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"n-1","user_id":"u-1","channel":"email","message":"hi","send_at":"2026-03-01T10:00:00Z","status":"pending","retries":0,"created_at":"2026-03-01T09:00:00Z","updated_at":"2026-03-01T09:00:00Z"},
			{"id":"n-2","recipient":"r-2","channel":"telegram","message":"yo","send_at":"2026-03-01T11:00:00Z","status":"sent","retries":2}
		]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api/v1")

	notifications, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("len = %d, want 2", len(notifications))
	}
	if notifications[0].Status != domain.StatusPending || notifications[0].Target() != "u-1" {
		t.Fatalf("first notification = %+v", notifications[0])
	}
	if notifications[1].Target() != "r-2" || notifications[1].Retries != 2 {
		t.Fatalf("second notification = %+v", notifications[1])
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !notifications[0].SendAt.Equal(want) {
		t.Fatalf("SendAt = %s, want %s", notifications[0].SendAt, want)
	}
}

func TestClientListNullIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	defer server.Close()

	notifications, err := newTestClient(t, server.URL).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if notifications == nil || len(notifications) != 0 {
		t.Fatalf("List() = %#v, want empty non-nil slice", notifications)
	}
}

func TestClientCreateSendsPayload(t *testing.T) {
	t.Parallel()

	var got domain.CreateNotification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/notify" {
			t.Errorf("request = %s %s, want POST /notify", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"n-new","user_id":"u-1","channel":"email","message":"hello","status":"pending"}`))
	}))
	defer server.Close()

	req := domain.CreateNotification{
		UserID:  "u-1",
		Channel: domain.ChannelEmail,
		Message: "hello",
		SendAt:  "2026-03-01T10:00:00Z",
	}
	created, err := newTestClient(t, server.URL).Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != "n-new" {
		t.Fatalf("created.ID = %q, want n-new", created.ID)
	}
	if got != req {
		t.Fatalf("payload = %+v, want %+v", got, req)
	}
}

func TestClientServerErrorCarriesBodyVerbatim(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid channel\n"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Create(context.Background(), domain.CreateNotification{UserID: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsServerError(err) {
		t.Fatalf("IsServerError() = false, err = %v", err)
	}
	if IsNetworkFailure(err) {
		t.Fatal("IsNetworkFailure() = true for server error")
	}

	var backendErr *Error
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if backendErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", backendErr.StatusCode)
	}
	if Detail(err) != "invalid channel" {
		t.Fatalf("Detail() = %q, want %q", Detail(err), "invalid channel")
	}
}

func TestClientGetAndCancelEscapeID(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		paths   []string
		methods []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		methods = append(methods, r.Method)
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"a/b","status":"pending"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	n, err := c.Get(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if n.ID != "a/b" {
		t.Fatalf("ID = %q, want a/b", n.ID)
	}
	if err := c.Cancel(context.Background(), "a/b"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 {
		t.Fatalf("requests = %d, want 2", len(paths))
	}
	for i, p := range paths {
		if p != "/notify/a%2Fb" {
			t.Fatalf("path[%d] = %q, want /notify/a%%2Fb", i, p)
		}
	}
	if methods[0] != http.MethodGet || methods[1] != http.MethodDelete {
		t.Fatalf("methods = %v, want [GET DELETE]", methods)
	}
}

func TestClientRejectsEmptyID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.Get(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Get() error = %v, want ErrValidation", err)
	}
	if err := c.Cancel(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Cancel() error = %v, want ErrValidation", err)
	}
}

func TestClientNetworkFailure(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(t, "http://127.0.0.1:1").List(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetworkFailure(err) {
		t.Fatalf("IsNetworkFailure() = false, err = %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false for network failure, err = %v", err)
	}
	if Detail(err) != "backend is unreachable" {
		t.Fatalf("Detail() = %q", Detail(err))
	}
}

func TestClientTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(30 * time.Millisecond)

	c, err := NewClientWithResty(server.URL, client)
	if err != nil {
		t.Fatalf("NewClientWithResty() error = %v", err)
	}

	_, err = c.List(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsNetworkFailure(err) {
		t.Fatalf("IsNetworkFailure() = false, err = %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
}

func TestClientInvalidJSONIsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "{broken")
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).List(context.Background())
	if !IsServerError(err) {
		t.Fatalf("IsServerError() = false, err = %v", err)
	}
}

func TestClientRecordsMetrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	metrics := observability.NewMetrics()
	c := newTestClient(t, server.URL).WithMetrics(metrics)

	_ = c.Cancel(context.Background(), "n-1")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	want := `dispatch_console_backend_calls_total{operation="cancel",outcome="server_error"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("metrics output missing %q", want)
	}
}

func TestIsTransientClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "too many requests", err: &Error{Kind: KindServerError, StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "bad request", err: &Error{Kind: KindServerError, StatusCode: http.StatusBadRequest}, want: false},
		{name: "bad gateway", err: &Error{Kind: KindServerError, StatusCode: http.StatusBadGateway}, want: true},
		{name: "cancelled", err: &Error{Kind: KindNetworkFailure, Cause: context.Canceled}, want: false},
		{name: "deadline", err: &Error{Kind: KindNetworkFailure, Cause: context.DeadlineExceeded}, want: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.want)
			}
		})
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := NewClient(baseURL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestClientGetNotFoundMatchesDomainError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "notification not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if Detail(err) != "notification not found" {
		t.Fatalf("Detail() = %q", Detail(err))
	}

	if errors.Is(&Error{Kind: KindServerError, StatusCode: http.StatusBadRequest}, domain.ErrNotFound) {
		t.Fatal("400 must not match ErrNotFound")
	}
}
