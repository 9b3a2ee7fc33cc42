package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
	"go.uber.org/zap"
)

const (
	defaultSessionIdleTTL = 30 * time.Minute
	defaultSweepInterval  = time.Minute
)

var ErrRegistryClosed = errors.New("console registry is closed")

// Registry owns one Console per browser session and evicts idle ones.
type Registry struct {
	api     NotificationAPI
	banners BannerStore
	opts    Options
	idleTTL time.Duration
	sweep   time.Duration

	mu       sync.Mutex
	consoles map[string]*Console
	closed   bool
}

func NewRegistry(api NotificationAPI, banners BannerStore, opts Options, idleTTL time.Duration) (*Registry, error) {
	if api == nil {
		return nil, fmt.Errorf("notification api is required")
	}
	if banners == nil {
		banners = NewMemoryBannerStore()
	}
	if idleTTL <= 0 {
		idleTTL = defaultSessionIdleTTL
	}
	opts = opts.withDefaults()

	sweep := defaultSweepInterval
	if idleTTL < sweep {
		sweep = idleTTL
	}

	return &Registry{
		api:      api,
		banners:  banners,
		opts:     opts,
		idleTTL:  idleTTL,
		sweep:    sweep,
		consoles: make(map[string]*Console),
	}, nil
}

// Get returns the console for sessionID, creating and priming one when the id is
// unknown. Ids that are not UUIDs are replaced with a fresh one. New consoles do not
// refresh in the background until Initialize is called on them.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Console, bool, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false, ErrRegistryClosed
	}
	if existing, ok := r.consoles[sessionID]; ok {
		r.mu.Unlock()
		return existing, false, nil
	}

	c, err := New(sessionID, r.api, r.banners, r.opts)
	if err != nil {
		r.mu.Unlock()
		return nil, false, err
	}
	r.consoles[sessionID] = c
	r.mu.Unlock()

	r.opts.Metrics.IncConsolesActive()
	r.opts.Logger.Info("console session started", zap.String(observability.FieldSessionID, sessionID))

	if err := c.Prime(ctx); err != nil {
		r.opts.Logger.Warn("initial load failed", zap.String(observability.FieldSessionID, sessionID), zap.Error(err))
	}
	return c, true, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}

// Run evicts idle consoles until ctx is cancelled, then closes the rest.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep evicts consoles idle for longer than the idle TTL and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.opts.Now()

	r.mu.Lock()
	var idle []*Console
	for id, c := range r.consoles {
		if now.Sub(c.LastActive()) > r.idleTTL {
			idle = append(idle, c)
			delete(r.consoles, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		r.evict(ctx, c)
	}
	return len(idle)
}

// Close closes every console. Get fails with ErrRegistryClosed afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := make([]*Console, 0, len(r.consoles))
	for id, c := range r.consoles {
		all = append(all, c)
		delete(r.consoles, id)
	}
	r.mu.Unlock()

	ctx := context.Background()
	for _, c := range all {
		r.evict(ctx, c)
	}
}

func (r *Registry) evict(ctx context.Context, c *Console) {
	c.Close()
	if err := r.banners.Clear(ctx, c.SessionID()); err != nil {
		r.opts.Logger.Warn("clear banners failed", zap.String(observability.FieldSessionID, c.SessionID()), zap.Error(err))
	}
	r.opts.Metrics.DecConsolesActive()
	r.opts.Logger.Info("console session closed", zap.String(observability.FieldSessionID, c.SessionID()))
}
