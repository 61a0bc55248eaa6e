package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/pkg/models"
)

// PlaybackInfo is the client-facing description of how to play a
// video: either the encoded quality map or a managed playback ID.
type PlaybackInfo struct {
	VideoID    string            `json:"video_id"`
	Status     string            `json:"status"`
	Qualities  models.QualityMap `json:"qualities,omitempty"`
	PlaybackID string            `json:"playback_id,omitempty"`
}

// Cache stores playback info in Redis so playback requests do not walk
// the database on every page load.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new cache instance
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// NewWithClient wraps an existing client, for tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func playbackKey(videoID string) string {
	return "playback:" + videoID
}

// SetPlaybackInfo caches playback info for a video
func (c *Cache) SetPlaybackInfo(ctx context.Context, info *PlaybackInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal playback info: %w", err)
	}

	return c.client.Set(ctx, playbackKey(info.VideoID), data, c.ttl).Err()
}

// GetPlaybackInfo retrieves playback info; a miss returns (nil, nil).
func (c *Cache) GetPlaybackInfo(ctx context.Context, videoID string) (*PlaybackInfo, error) {
	data, err := c.client.Get(ctx, playbackKey(videoID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playback info from cache: %w", err)
	}

	var info PlaybackInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playback info: %w", err)
	}

	return &info, nil
}

// DeletePlaybackInfo drops the cached entry, used when the video's
// authoritative representation changes.
func (c *Cache) DeletePlaybackInfo(ctx context.Context, videoID string) error {
	return c.client.Del(ctx, playbackKey(videoID)).Err()
}
