package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courseforge/vod/internal/cache"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/internal/middleware"
	"github.com/courseforge/vod/pkg/models"
)

// AssetCreator creates or replaces the managed asset for a video.
type AssetCreator interface {
	CreateForVideo(ctx context.Context, callerID, videoID, sourceURL string) (*models.MuxAsset, error)
}

// MetadataReader is the read surface used by the playback endpoint.
type MetadataReader interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	GetMuxAssetByVideoID(ctx context.Context, videoID string) (*models.MuxAsset, error)
	ResolveOwnership(ctx context.Context, videoID string) (*models.Ownership, error)
}

// PlaybackCache caches playback info lookups.
type PlaybackCache interface {
	GetPlaybackInfo(ctx context.Context, videoID string) (*cache.PlaybackInfo, error)
	SetPlaybackInfo(ctx context.Context, info *cache.PlaybackInfo) error
}

// EncodeEnqueuer hands ladder jobs to the encode worker.
type EncodeEnqueuer interface {
	PublishEncodeRequest(ctx context.Context, videoID string) error
}

// API holds the HTTP handlers' dependencies.
type API struct {
	assets     AssetCreator
	repo       MetadataReader
	cache      PlaybackCache
	enqueuer   EncodeEnqueuer
	muxDataKey string
	log        *logging.Logger
}

func (api *API) createMuxAsset(c *gin.Context) {
	var req struct {
		VideoID  string `json:"video_id" binding:"required"`
		VideoURL string `json:"video_url" binding:"required,url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callerID := middleware.CallerID(c)
	if callerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity missing"})
		return
	}

	asset, err := api.assets.CreateForVideo(c.Request.Context(), callerID, req.VideoID, req.VideoURL)
	if err != nil {
		api.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"asset_id":    asset.AssetID,
		"playback_id": asset.PlaybackID,
		"mux_data_id": api.muxDataKey,
	})
}

func (api *API) requestEncode(c *gin.Context) {
	videoID := c.Param("id")

	callerID := middleware.CallerID(c)
	chain, err := api.repo.ResolveOwnership(c.Request.Context(), videoID)
	if err != nil {
		api.writeError(c, err)
		return
	}
	if chain.Instructor.ID != callerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the course instructor may request encoding"})
		return
	}
	if !chain.Video.HasSource() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "video has no source upload"})
		return
	}

	if err := api.enqueuer.PublishEncodeRequest(c.Request.Context(), videoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue encode job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"video_id": videoID, "status": "queued"})
}

func (api *API) getPlaybackInfo(c *gin.Context) {
	videoID := c.Param("id")
	ctx := c.Request.Context()

	if api.cache != nil {
		if info, err := api.cache.GetPlaybackInfo(ctx, videoID); err == nil && info != nil {
			c.JSON(http.StatusOK, info)
			return
		}
	}

	video, err := api.repo.GetVideo(ctx, videoID)
	if err != nil {
		api.writeError(c, err)
		return
	}

	info := &cache.PlaybackInfo{
		VideoID: video.ID,
		Status:  video.Status,
	}

	switch {
	case video.Status == models.VideoStatusManaged:
		asset, err := api.repo.GetMuxAssetByVideoID(ctx, videoID)
		if err != nil {
			api.writeError(c, err)
			return
		}
		info.PlaybackID = asset.PlaybackID
	case video.HasQualities():
		info.Qualities = video.Qualities
	case video.HasSource():
		// Unprocessed upload: the raw source is the only representation.
		info.Qualities = models.QualityMap{"source": *video.SourceURL}
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "video has no playable representation"})
		return
	}

	if api.cache != nil {
		if err := api.cache.SetPlaybackInfo(ctx, info); err != nil {
			api.log.Warnf("best-effort playback cache write failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, info)
}

// writeError maps the error taxonomy onto HTTP statuses.
func (api *API) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidState):
		// Distinct from an auth denial: the course data itself is
		// incomplete and needs fixing, not the caller's permissions.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "course data incomplete: " + err.Error()})
	case errors.Is(err, models.ErrUpstreamFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		api.log.ErrorWithErr("unhandled API error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
