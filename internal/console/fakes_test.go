package console

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/dispatch-console/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAPI struct {
	mu sync.Mutex

	listFn   func(ctx context.Context) ([]domain.Notification, error)
	getFn    func(ctx context.Context, id string) (*domain.Notification, error)
	createFn func(ctx context.Context, req domain.CreateNotification) (*domain.Notification, error)
	cancelFn func(ctx context.Context, id string) error

	listCalls   int
	cancelCalls int
	created     []domain.CreateNotification
	cancelled   []string
}

func (f *fakeAPI) List(ctx context.Context) ([]domain.Notification, error) {
	f.mu.Lock()
	f.listCalls++
	fn := f.listFn
	f.mu.Unlock()

	if fn == nil {
		return []domain.Notification{}, nil
	}
	return fn(ctx)
}

func (f *fakeAPI) Get(ctx context.Context, id string) (*domain.Notification, error) {
	if f.getFn == nil {
		return &domain.Notification{ID: id, Status: domain.StatusPending}, nil
	}
	return f.getFn(ctx, id)
}

func (f *fakeAPI) Create(ctx context.Context, req domain.CreateNotification) (*domain.Notification, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	fn := f.createFn
	f.mu.Unlock()

	if fn == nil {
		return &domain.Notification{ID: "created-1", UserID: req.UserID, Channel: req.Channel, Status: domain.StatusPending}, nil
	}
	return fn(ctx, req)
}

func (f *fakeAPI) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	f.cancelCalls++
	f.cancelled = append(f.cancelled, id)
	fn := f.cancelFn
	f.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx, id)
}

func (f *fakeAPI) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAPI) CancelCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelCalls
}

func (f *fakeAPI) Created() []domain.CreateNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CreateNotification(nil), f.created...)
}

func sampleNotifications() []domain.Notification {
	return []domain.Notification{
		{ID: "n-1", UserID: "u-1", Channel: domain.ChannelEmail, Message: "one", Status: domain.StatusPending},
		{ID: "n-2", UserID: "u-2", Channel: domain.ChannelTelegram, Message: "two", Status: domain.StatusSent},
		{ID: "n-3", UserID: "u-3", Channel: domain.ChannelEmail, Message: "three", Status: domain.StatusCancelled},
		{ID: "n-4", UserID: "u-4", Channel: domain.ChannelTelegram, Message: "four", Status: domain.StatusFailed},
		{ID: "n-5", UserID: "u-5", Channel: domain.ChannelEmail, Message: "five", Status: domain.StatusSent},
	}
}
