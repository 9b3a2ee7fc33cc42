package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/dispatch-console/internal/console"
	goredis "github.com/redis/go-redis/v9"
)

const (
	bannerKeyPrefix = "console:banners:"
	// minBannerKeyTTL bounds how long an abandoned session's banner set lingers.
	minBannerKeyTTL = time.Minute
)

var _ console.BannerStore = (*BannerStore)(nil)

// BannerStore keeps banners in a sorted set per session, scored by expiry in milliseconds,
// so several console replicas share them.
type BannerStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewBannerStore(client *goredis.Client) (*BannerStore, error) {
	return newBannerStore(client, time.Now)
}

func newBannerStore(client *goredis.Client, nowFn func() time.Time) (*BannerStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &BannerStore{client: client, now: nowFn}, nil
}

func (s *BannerStore) Push(ctx context.Context, sessionID string, banner console.Banner) error {
	key, err := bannerKey(sessionID)
	if err != nil {
		return err
	}

	member, err := json.Marshal(banner)
	if err != nil {
		return fmt.Errorf("failed to encode banner: %w", err)
	}

	keyTTL := banner.ExpiresAt.Sub(s.now())
	if keyTTL < minBannerKeyTTL {
		keyTTL = minBannerKeyTTL
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(banner.ExpiresAt.UnixMilli()), Member: string(member)})
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push banner: %w", err)
	}
	return nil
}

func (s *BannerStore) Active(ctx context.Context, sessionID string, now time.Time) ([]console.Banner, error) {
	key, err := bannerKey(sessionID)
	if err != nil {
		return nil, err
	}

	cutoff := strconv.FormatInt(now.UnixMilli(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	members := pipe.ZRevRangeByScore(ctx, key, &goredis.ZRangeBy{Min: "(" + cutoff, Max: "+inf"})
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to read banners: %w", err)
	}

	raw := members.Val()
	if len(raw) == 0 {
		return nil, nil
	}

	banners := make([]console.Banner, 0, len(raw))
	for _, member := range raw {
		var banner console.Banner
		if err := json.Unmarshal([]byte(member), &banner); err != nil {
			return nil, fmt.Errorf("failed to decode banner: %w", err)
		}
		banners = append(banners, banner)
	}
	return banners, nil
}

func (s *BannerStore) Clear(ctx context.Context, sessionID string) error {
	key, err := bannerKey(sessionID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear banners: %w", err)
	}
	return nil
}

// Ping reports whether the store can reach Redis.
func (s *BannerStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func bannerKey(sessionID string) (string, error) {
	normalized := strings.TrimSpace(sessionID)
	if normalized == "" {
		return "", fmt.Errorf("session id is required")
	}
	return bannerKeyPrefix + normalized, nil
}
