package muxasset

import (
	"context"
	"errors"
	"fmt"

	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/internal/metrics"
	"github.com/courseforge/vod/internal/tracing"
	"github.com/courseforge/vod/pkg/models"
)

// AssetStore is the metadata store surface the manager needs.
type AssetStore interface {
	ResolveOwnership(ctx context.Context, videoID string) (*models.Ownership, error)
	GetMuxAssetByVideoID(ctx context.Context, videoID string) (*models.MuxAsset, error)
	CreateMuxAsset(ctx context.Context, asset *models.MuxAsset) error
	DeleteMuxAsset(ctx context.Context, id string) error
	MarkVideoManaged(ctx context.Context, videoID string) error
}

// RemoteAPI is the remote transcoding service surface.
type RemoteAPI interface {
	CreateAsset(ctx context.Context, sourceURL string) (*Asset, error)
	DeleteAsset(ctx context.Context, assetID string) error
}

// PlaybackCache invalidates cached playback info when an asset changes.
type PlaybackCache interface {
	DeletePlaybackInfo(ctx context.Context, videoID string) error
}

// URLValidator checks a source URL points at our own blob store.
type URLValidator interface {
	IsBlobURL(rawURL string) bool
}

// Service manages one-asset-per-video exclusivity against the remote
// transcoding service.
type Service struct {
	store  AssetStore
	remote RemoteAPI
	cache  PlaybackCache
	blobs  URLValidator
	log    *logging.Logger
}

// NewService creates an asset manager service
func NewService(store AssetStore, remote RemoteAPI, cache PlaybackCache, blobs URLValidator, log *logging.Logger) *Service {
	return &Service{
		store:  store,
		remote: remote,
		cache:  cache,
		blobs:  blobs,
		log:    log,
	}
}

// CreateForVideo submits a video's source to the remote service and
// records the resulting asset, replacing any prior asset for the same
// video.
//
// The ownership chain is resolved and checked before any mutation.
// Replacement deletes old state before creating new state: a brief
// availability gap is preferred over double-billed remote assets.
func (s *Service) CreateForVideo(ctx context.Context, callerID, videoID, sourceURL string) (*models.MuxAsset, error) {
	span, ctx := tracing.StartSpan(ctx, "muxasset.CreateForVideo")
	defer span.Finish()
	span.SetTag("video_id", videoID)

	chain, err := s.store.ResolveOwnership(ctx, videoID)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	if chain.Instructor.ID != callerID {
		return nil, fmt.Errorf("caller %s is not the instructor of course %s: %w",
			callerID, chain.Course.ID, models.ErrForbidden)
	}

	if !s.blobs.IsBlobURL(sourceURL) {
		return nil, fmt.Errorf("source URL is not on the blob store: %w", models.ErrInvalidInput)
	}

	// Replacement path: drop the old remote asset and its record
	// before creating the new pair. Remote deletion is best-effort;
	// the local record must go regardless so exactly one record is
	// associated with the video afterwards.
	existing, err := s.store.GetMuxAssetByVideoID(ctx, videoID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if err := s.remote.DeleteAsset(ctx, existing.AssetID); err != nil {
			s.log.WithVideoID(videoID).Warnf(
				"best-effort delete of stale remote asset %s failed: %v", existing.AssetID, err)
		}
		if err := s.store.DeleteMuxAsset(ctx, existing.ID); err != nil {
			return nil, err
		}
		metrics.MuxAssetsReplacedTotal.Inc()
	}

	remoteAsset, err := s.remote.CreateAsset(ctx, sourceURL)
	if err != nil {
		tracing.LogError(span, err)
		return nil, err
	}

	record := &models.MuxAsset{
		VideoID:    videoID,
		AssetID:    remoteAsset.ID,
		PlaybackID: remoteAsset.PlaybackID,
	}
	if err := s.store.CreateMuxAsset(ctx, record); err != nil {
		return nil, err
	}

	if err := s.store.MarkVideoManaged(ctx, videoID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.DeletePlaybackInfo(ctx, videoID); err != nil {
			s.log.WithVideoID(videoID).Warnf("best-effort playback cache invalidation failed: %v", err)
		}
	}

	metrics.MuxAssetsCreatedTotal.Inc()
	s.log.WithVideoID(videoID).Infof("created remote asset %s (playback %s)",
		record.AssetID, record.PlaybackID)

	return record, nil
}
