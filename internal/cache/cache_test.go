package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseforge/vod/pkg/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, time.Minute)
}

func TestPlaybackInfoRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	info := &PlaybackInfo{
		VideoID: "video-1",
		Status:  models.VideoStatusEncoded,
		Qualities: models.QualityMap{
			"720p": "https://blob.example.com/videos/video-1/720p.mp4",
		},
	}

	require.NoError(t, c.SetPlaybackInfo(ctx, info))

	got, err := c.GetPlaybackInfo(ctx, "video-1")
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestPlaybackInfoMiss(t *testing.T) {
	c := newTestCache(t)

	got, err := c.GetPlaybackInfo(context.Background(), "nope")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeletePlaybackInfo(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	info := &PlaybackInfo{VideoID: "video-2", Status: models.VideoStatusManaged, PlaybackID: "pb-1"}
	require.NoError(t, c.SetPlaybackInfo(ctx, info))
	require.NoError(t, c.DeletePlaybackInfo(ctx, "video-2"))

	got, err := c.GetPlaybackInfo(ctx, "video-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}
