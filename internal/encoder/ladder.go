package encoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/internal/metrics"
	"github.com/courseforge/vod/internal/storage"
	"github.com/courseforge/vod/internal/tracing"
	"github.com/courseforge/vod/pkg/models"
)

// VideoStore is the metadata store surface the encoder needs.
type VideoStore interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	UpdateVideoQualities(ctx context.Context, videoID string, qualities models.QualityMap) error
}

// BlobStore uploads finished renditions and returns their playback URL.
type BlobStore interface {
	UploadFile(ctx context.Context, objectName, filePath string) (string, error)
}

// SourceDownloader fetches the original upload to local disk.
type SourceDownloader interface {
	Download(ctx context.Context, url, destPath string, progress storage.ProgressFunc) error
}

// Transcoder produces one rendition per call.
type Transcoder interface {
	Probe(ctx context.Context, inputPath string) (*ProbeResult, error)
	EncodeRung(ctx context.Context, inputPath, outputPath string, rung models.QualityRung, progressCB ProgressCallback) error
}

// Service runs quality-ladder encode jobs. Rungs are encoded
// sequentially: transcoding is CPU-bound and local, so parallel rungs
// on one host would starve each other.
type Service struct {
	store      VideoStore
	blobs      BlobStore
	downloader SourceDownloader
	transcoder Transcoder
	cfg        config.EncoderConfig
	log        *logging.Logger
}

// NewService creates a ladder encoder service
func NewService(
	cfg config.EncoderConfig,
	store VideoStore,
	blobs BlobStore,
	downloader SourceDownloader,
	transcoder Transcoder,
	log *logging.Logger,
) *Service {
	return &Service{
		store:      store,
		blobs:      blobs,
		downloader: downloader,
		transcoder: transcoder,
		cfg:        cfg,
		log:        log,
	}
}

// LadderResult summarizes one encode job.
type LadderResult struct {
	VideoID   string
	Qualities models.QualityMap
	Skipped   []string // rungs above the source resolution
	Failed    []string // rungs whose encode or upload failed
}

// EncodeVideo runs the full ladder over one video.
//
// Per-rung failures are logged and skipped; the quality map is written
// exactly once, after all rungs were attempted, so a crash mid-job
// leaves the prior persisted state intact. The job is re-runnable from
// scratch: it only reads the persisted source URL and writes a full
// replacement map.
func (s *Service) EncodeVideo(ctx context.Context, videoID string) (*LadderResult, error) {
	span, ctx := tracing.StartSpan(ctx, "encoder.EncodeVideo")
	defer span.Finish()
	span.SetTag("video_id", videoID)

	log := s.log.WithVideoID(videoID)

	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.HasSource() {
		return nil, fmt.Errorf("video %s has no source upload: %w", videoID, models.ErrInvalidState)
	}

	// Per-job scratch directory, removed on every exit path.
	if err := os.MkdirAll(s.cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp root: %w", err)
	}
	tempDir, err := os.MkdirTemp(s.cfg.TempDir, "encode-"+videoID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create job temp dir: %w", err)
	}
	defer bestEffort(log, "remove job temp dir", func() error {
		return os.RemoveAll(tempDir)
	})

	inputPath := filepath.Join(tempDir, "source.mp4")
	log.Infof("downloading source %s", *video.SourceURL)
	err = s.downloader.Download(ctx, *video.SourceURL, inputPath, func(fraction float64) {
		log.Debugf("download progress %.0f%%", fraction*100)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download source: %w", err)
	}

	probe, err := s.transcoder.Probe(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe source: %w", err)
	}
	log.Infof("source is %dx%d, %.1fs", probe.Width, probe.Height, probe.Duration)

	result := &LadderResult{
		VideoID:   videoID,
		Qualities: make(models.QualityMap),
	}

	// The ladder is ordered highest first and the no-upscale rule keeps
	// a suffix of it, so everything before the eligible rungs was skipped.
	ladder := models.QualityLadder()
	eligible := models.RungsForSource(probe.Height)
	for _, rung := range ladder[:len(ladder)-len(eligible)] {
		result.Skipped = append(result.Skipped, rung.Label)
		log.LogRungEvent(videoID, rung.Label, "skipped", nil)
	}

	for _, rung := range eligible {
		outputPath := filepath.Join(tempDir, rung.Label+".mp4")
		if err := s.transcoder.EncodeRung(ctx, inputPath, outputPath, rung, nil); err != nil {
			// Non-fatal: a partially successful job is still useful.
			result.Failed = append(result.Failed, rung.Label)
			log.LogRungEvent(videoID, rung.Label, "encode failed", err)
			metrics.RungsFailedTotal.WithLabelValues(rung.Label).Inc()
			continue
		}

		objectName := fmt.Sprintf("videos/%s/%s.mp4", videoID, rung.Label)
		url, err := s.blobs.UploadFile(ctx, objectName, outputPath)
		bestEffort(log, "remove local rendition", func() error {
			return os.Remove(outputPath)
		})
		if err != nil {
			result.Failed = append(result.Failed, rung.Label)
			log.LogRungEvent(videoID, rung.Label, "upload failed", err)
			metrics.RungsFailedTotal.WithLabelValues(rung.Label).Inc()
			continue
		}

		result.Qualities[rung.Label] = url
		log.LogRungEvent(videoID, rung.Label, "uploaded", nil)
		metrics.RungsEncodedTotal.WithLabelValues(rung.Label).Inc()
	}

	if len(result.Qualities) == 0 {
		metrics.LadderJobsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("no rung of the ladder succeeded for video %s: %w",
			videoID, models.ErrEncodingFailed)
	}

	// Single atomic write, after all rungs were attempted.
	if err := s.store.UpdateVideoQualities(ctx, videoID, result.Qualities); err != nil {
		metrics.LadderJobsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to persist quality map: %w", err)
	}

	metrics.LadderJobsTotal.WithLabelValues("completed").Inc()
	log.Infof("encoded %d/%d rungs (%d skipped)",
		len(result.Qualities), len(models.QualityLadder())-len(result.Skipped), len(result.Skipped))

	return result, nil
}
