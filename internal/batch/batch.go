package batch

import (
	"context"
	"fmt"

	"github.com/courseforge/vod/internal/encoder"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/pkg/models"
)

// VideoLister finds videos that still need a quality ladder.
type VideoLister interface {
	ListVideosMissingQualities(ctx context.Context) ([]*models.Video, error)
}

// Encoder runs one ladder job.
type Encoder interface {
	EncodeVideo(ctx context.Context, videoID string) (*encoder.LadderResult, error)
}

// Orchestrator drives the ladder encoder over every video lacking
// renditions. Videos are processed one at a time: encoding is
// CPU-bound and local, so concurrent jobs on one host would starve
// each other.
type Orchestrator struct {
	lister  VideoLister
	encoder Encoder
	log     *logging.Logger
}

// NewOrchestrator creates a batch orchestrator
func NewOrchestrator(lister VideoLister, enc Encoder, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		lister:  lister,
		encoder: enc,
		log:     log,
	}
}

// Summary reports the outcome of one batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Encoded   []string          // video IDs that got a fresh quality map
	Failures  map[string]string // video ID -> error text
}

// Run encodes every pending video sequentially, continuing past
// individual failures. It stops early only when the context is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	videos, err := o.lister.ListVideosMissingQualities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending videos: %w", err)
	}

	summary := &Summary{
		Total:    len(videos),
		Failures: make(map[string]string),
	}

	o.log.Infof("batch encode: %d videos pending", len(videos))

	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := o.encoder.EncodeVideo(ctx, video.ID)
		if err != nil {
			summary.Failed++
			summary.Failures[video.ID] = err.Error()
			o.log.WithVideoID(video.ID).ErrorWithErr("batch encode failed", err)
			continue
		}

		summary.Succeeded++
		summary.Encoded = append(summary.Encoded, video.ID)
		o.log.WithVideoID(video.ID).Infof("batch encode done: %d renditions, %d failed rungs",
			len(result.Qualities), len(result.Failed))
	}

	o.log.Infof("batch encode finished: %d ok, %d failed of %d",
		summary.Succeeded, summary.Failed, summary.Total)

	return summary, nil
}
