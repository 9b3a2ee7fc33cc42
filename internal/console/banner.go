package console

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultBannerTTL = 5 * time.Second

type BannerLevel string

const (
	BannerSuccess BannerLevel = "success"
	BannerError   BannerLevel = "error"
)

func (l BannerLevel) String() string { return string(l) }

// Banner is a transient message that disappears once ExpiresAt passes.
type Banner struct {
	ID        string      `json:"id"`
	Level     BannerLevel `json:"level"`
	Text      string      `json:"text"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (b Banner) Active(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}

// BannerStore keeps transient banners per console session.
type BannerStore interface {
	Push(ctx context.Context, sessionID string, banner Banner) error
	// Active returns unexpired banners, newest first.
	Active(ctx context.Context, sessionID string, now time.Time) ([]Banner, error)
	Clear(ctx context.Context, sessionID string) error
}

var _ BannerStore = (*MemoryBannerStore)(nil)

// MemoryBannerStore is the single-process BannerStore.
type MemoryBannerStore struct {
	mu      sync.Mutex
	banners map[string][]Banner
}

func NewMemoryBannerStore() *MemoryBannerStore {
	return &MemoryBannerStore{banners: make(map[string][]Banner)}
}

func (s *MemoryBannerStore) Push(_ context.Context, sessionID string, banner Banner) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.banners[sessionID] = append(s.banners[sessionID], banner)
	return nil
}

func (s *MemoryBannerStore) Active(_ context.Context, sessionID string, now time.Time) ([]Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.banners[sessionID]
	kept := stored[:0]
	for _, b := range stored {
		if b.Active(now) {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		delete(s.banners, sessionID)
		return nil, nil
	}
	s.banners[sessionID] = kept

	out := make([]Banner, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, kept[i])
	}
	return out, nil
}

func (s *MemoryBannerStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.banners, sessionID)
	return nil
}
