package models

import "time"

// MuxAsset records a managed streaming asset created for a video by
// the remote transcoding service. A video has at most one; replacing
// the source deletes the row and its remote asset and creates a fresh
// pair, the record is never mutated in place.
type MuxAsset struct {
	ID         string    `json:"id" db:"id"`
	VideoID    string    `json:"video_id" db:"video_id"`
	AssetID    string    `json:"asset_id" db:"asset_id"`
	PlaybackID string    `json:"playback_id" db:"playback_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Remote asset status constants, as reported by the remote service.
const (
	AssetStatusPreparing = "preparing"
	AssetStatusReady     = "ready"
	AssetStatusErrored   = "errored"
)
