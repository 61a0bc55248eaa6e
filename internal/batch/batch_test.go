package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseforge/vod/internal/encoder"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/pkg/models"
)

type fakeLister struct {
	videos []*models.Video
	err    error
}

func (f *fakeLister) ListVideosMissingQualities(ctx context.Context) ([]*models.Video, error) {
	return f.videos, f.err
}

type fakeEncoder struct {
	fail    map[string]bool
	encoded []string
}

func (f *fakeEncoder) EncodeVideo(ctx context.Context, videoID string) (*encoder.LadderResult, error) {
	if f.fail[videoID] {
		return nil, errors.New("encode blew up")
	}
	f.encoded = append(f.encoded, videoID)
	return &encoder.LadderResult{
		VideoID:   videoID,
		Qualities: models.QualityMap{"480p": "https://blob.example.com/videos/" + videoID + "/480p.mp4"},
	}, nil
}

func pending(ids ...string) []*models.Video {
	var videos []*models.Video
	for _, id := range ids {
		url := "https://uploads.example.com/" + id + ".mp4"
		videos = append(videos, &models.Video{ID: id, SourceURL: &url})
	}
	return videos
}

func TestRunContinuesPastFailures(t *testing.T) {
	enc := &fakeEncoder{fail: map[string]bool{"v2": true}}
	o := NewOrchestrator(&fakeLister{videos: pending("v1", "v2", "v3")}, enc, logging.Nop())

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Failures, "v2")
	assert.Equal(t, []string{"v1", "v3"}, summary.Encoded)
	assert.Equal(t, []string{"v1", "v3"}, enc.encoded)
}

func TestRunSequentialOrder(t *testing.T) {
	enc := &fakeEncoder{}
	o := NewOrchestrator(&fakeLister{videos: pending("a", "b", "c")}, enc, logging.Nop())

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, enc.encoded)
}

func TestRunEmptyBacklog(t *testing.T) {
	o := NewOrchestrator(&fakeLister{}, &fakeEncoder{}, logging.Nop())

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Total)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc := &fakeEncoder{}
	o := NewOrchestrator(&fakeLister{videos: pending("v1")}, enc, logging.Nop())

	_, err := o.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, enc.encoded)
}

func TestRunListFailure(t *testing.T) {
	o := NewOrchestrator(&fakeLister{err: errors.New("db down")}, &fakeEncoder{}, logging.Nop())

	_, err := o.Run(context.Background())

	assert.Error(t, err)
}
