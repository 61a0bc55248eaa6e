package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Video represents one lecture video belonging to a course section.
//
// Exactly one playable representation is authoritative at a time:
// the raw SourceURL from the original upload, the Qualities ladder
// produced by the encoder, or a managed Mux asset. Populating the
// ladder or a Mux asset moves the video out of the "uploaded" state
// so the raw URL is no longer served.
type Video struct {
	ID        string     `json:"id" db:"id"`
	SectionID string     `json:"section_id" db:"section_id"`
	Title     string     `json:"title" db:"title"`
	SourceURL *string    `json:"source_url,omitempty" db:"source_url"`
	Qualities QualityMap `json:"qualities" db:"qualities"`
	Duration  float64    `json:"duration" db:"duration"`
	Status    string     `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// QualityMap maps a quality label ("1080p") to the URL of that rendition.
type QualityMap map[string]string

// Value implements driver.Valuer for database storage
func (m QualityMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(QualityMap{})
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *QualityMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(QualityMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// VideoStatus constants
const (
	VideoStatusEmpty    = "empty"    // created by course authoring, nothing uploaded yet
	VideoStatusUploaded = "uploaded" // raw source URL is the playable representation
	VideoStatusEncoded  = "encoded"  // quality ladder is the playable representation
	VideoStatusManaged  = "managed"  // remote Mux asset is the playable representation
)

// HasSource reports whether the video has a raw upload to encode from.
func (v *Video) HasSource() bool {
	return v.SourceURL != nil && *v.SourceURL != ""
}

// HasQualities reports whether the encoder has produced a ladder for
// this video.
func (v *Video) HasQualities() bool {
	return len(v.Qualities) > 0
}
