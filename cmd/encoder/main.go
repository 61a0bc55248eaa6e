package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/courseforge/vod/internal/batch"
	"github.com/courseforge/vod/internal/cache"
	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/internal/database"
	"github.com/courseforge/vod/internal/encoder"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/internal/queue"
	"github.com/courseforge/vod/internal/storage"
	"github.com/courseforge/vod/internal/tracing"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [arguments]

Commands:
  encode <video-id>   run the quality ladder for one video
  batch               encode every video missing renditions
  worker              consume encode requests from the queue
`, os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer closer.Close()
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Playback entries are invalidated after a successful encode.
	// Encoding must not depend on Redis being up, so a failed connect
	// only degrades to serving stale cache entries until their TTL.
	playbackCache, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Warnf("Playback cache unavailable, continuing without invalidation: %v", err)
		playbackCache = nil
	} else {
		defer playbackCache.Close()
	}

	ffmpeg := encoder.NewFFmpeg(cfg.Encoder.FFmpegPath, cfg.Encoder.FFprobePath, cfg.Encoder.Preset)
	svc := encoder.NewService(cfg.Encoder, repo, stor, storage.NewDownloader(), ffmpeg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Infof("Received signal %v, shutting down", sig)
		cancel()
	}()

	switch os.Args[1] {
	case "encode":
		if len(os.Args) != 3 {
			usage()
		}
		if err := runOne(ctx, svc, playbackCache, logger, os.Args[2]); err != nil {
			logger.Fatalf("Encode failed: %v", err)
		}

	case "batch":
		orchestrator := batch.NewOrchestrator(repo, svc, logger)
		summary, err := orchestrator.Run(ctx)
		if err != nil {
			logger.Fatalf("Batch run failed: %v", err)
		}
		if playbackCache != nil {
			for _, videoID := range summary.Encoded {
				invalidate(ctx, playbackCache, logger, videoID)
			}
		}
		logger.Infof("Batch finished: %d total, %d succeeded, %d failed",
			summary.Total, summary.Succeeded, summary.Failed)
		if summary.Failed > 0 {
			os.Exit(1)
		}

	case "worker":
		q, err := queue.New(cfg.Queue)
		if err != nil {
			logger.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()

		logger.Info("Encode worker started, waiting for jobs")
		err = q.ConsumeEncodeRequests(ctx, func(req *queue.EncodeRequest) error {
			return runOne(ctx, svc, playbackCache, logger, req.VideoID)
		})
		if err != nil && ctx.Err() == nil {
			logger.Fatalf("Queue consumer failed: %v", err)
		}
		logger.Info("Encode worker stopped")

	default:
		usage()
	}
}

// runOne executes a single ladder job and invalidates the cached
// playback entry so readers see the new renditions immediately.
func runOne(ctx context.Context, svc *encoder.Service, playbackCache *cache.Cache, logger *logging.Logger, videoID string) error {
	result, err := svc.EncodeVideo(ctx, videoID)
	if err != nil {
		return err
	}

	if playbackCache != nil {
		invalidate(ctx, playbackCache, logger, videoID)
	}

	logger.WithVideoID(videoID).Infof(
		"Encoded %d renditions (%d skipped, %d failed)",
		len(result.Qualities), len(result.Skipped), len(result.Failed))
	return nil
}

func invalidate(ctx context.Context, playbackCache *cache.Cache, logger *logging.Logger, videoID string) {
	if err := playbackCache.DeletePlaybackInfo(ctx, videoID); err != nil {
		logger.WithVideoID(videoID).Warnf("Best-effort cache invalidation failed: %v", err)
	}
}
