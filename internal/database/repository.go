package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/courseforge/vod/pkg/models"
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Videos

// GetVideo retrieves a video by ID
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video

	query := `
		SELECT id, section_id, title, source_url, qualities, duration, status, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&video.ID, &video.SectionID, &video.Title, &video.SourceURL,
		&video.Qualities, &video.Duration, &video.Status,
		&video.CreatedAt, &video.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &video, nil
}

// UpdateVideoQualities replaces the video's quality map in one write
// and marks the encoded representation authoritative. The raw source
// URL is kept as the encoder's input for future re-runs but is no
// longer served.
func (r *Repository) UpdateVideoQualities(ctx context.Context, videoID string, qualities models.QualityMap) error {
	query := `
		UPDATE videos
		SET qualities = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, videoID, qualities, models.VideoStatusEncoded)
	if err != nil {
		return fmt.Errorf("failed to update video qualities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", videoID, models.ErrNotFound)
	}

	return nil
}

// MarkVideoManaged marks the remote Mux asset as the authoritative
// representation for a video.
func (r *Repository) MarkVideoManaged(ctx context.Context, videoID string) error {
	query := `UPDATE videos SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, videoID, models.VideoStatusManaged)
	if err != nil {
		return fmt.Errorf("failed to mark video managed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", videoID, models.ErrNotFound)
	}

	return nil
}

// ListVideosMissingQualities retrieves videos that have a raw upload
// but no encoded ladder yet, oldest first.
func (r *Repository) ListVideosMissingQualities(ctx context.Context) ([]*models.Video, error) {
	query := `
		SELECT id, section_id, title, source_url, qualities, duration, status, created_at, updated_at
		FROM videos
		WHERE source_url IS NOT NULL AND source_url <> ''
		  AND (qualities IS NULL OR qualities = '{}'::jsonb)
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var video models.Video
		err := rows.Scan(
			&video.ID, &video.SectionID, &video.Title, &video.SourceURL,
			&video.Qualities, &video.Duration, &video.Status,
			&video.CreatedAt, &video.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, &video)
	}

	return videos, rows.Err()
}

// Mux assets

// GetMuxAssetByVideoID retrieves the managed asset record for a video
func (r *Repository) GetMuxAssetByVideoID(ctx context.Context, videoID string) (*models.MuxAsset, error) {
	var asset models.MuxAsset

	query := `
		SELECT id, video_id, asset_id, playback_id, created_at
		FROM mux_assets
		WHERE video_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, videoID).Scan(
		&asset.ID, &asset.VideoID, &asset.AssetID, &asset.PlaybackID, &asset.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mux asset for video %s: %w", videoID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mux asset: %w", err)
	}

	return &asset, nil
}

// CreateMuxAsset creates a managed asset record
func (r *Repository) CreateMuxAsset(ctx context.Context, asset *models.MuxAsset) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}

	query := `
		INSERT INTO mux_assets (id, video_id, asset_id, playback_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		asset.ID, asset.VideoID, asset.AssetID, asset.PlaybackID,
	).Scan(&asset.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create mux asset: %w", err)
	}

	return nil
}

// DeleteMuxAsset deletes a managed asset record by its row ID
func (r *Repository) DeleteMuxAsset(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM mux_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mux asset: %w", err)
	}

	return nil
}
