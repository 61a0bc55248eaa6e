package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityLadderOrder(t *testing.T) {
	ladder := QualityLadder()

	assert.Len(t, ladder, 5)
	for i := 1; i < len(ladder); i++ {
		assert.Greater(t, ladder[i-1].Height, ladder[i].Height,
			"ladder must be ordered highest resolution first")
	}
}

func TestRungsForSource(t *testing.T) {
	tests := []struct {
		name         string
		sourceHeight int
		expected     []string
	}{
		{
			name:         "4K source gets full ladder",
			sourceHeight: 2160,
			expected:     []string{"2160p", "1440p", "1080p", "720p", "480p"},
		},
		{
			name:         "720p source skips upscaling rungs",
			sourceHeight: 720,
			expected:     []string{"720p", "480p"},
		},
		{
			name:         "1080p source",
			sourceHeight: 1080,
			expected:     []string{"1080p", "720p", "480p"},
		},
		{
			name:         "odd height between rungs",
			sourceHeight: 900,
			expected:     []string{"720p", "480p"},
		},
		{
			name:         "below lowest rung",
			sourceHeight: 360,
			expected:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rungs := RungsForSource(tt.sourceHeight)

			var labels []string
			for _, r := range rungs {
				labels = append(labels, r.Label)
			}
			assert.Equal(t, tt.expected, labels)
		})
	}
}

func TestQualityMapRoundTrip(t *testing.T) {
	m := QualityMap{
		"1080p": "https://blob.example.com/v/abc/1080p.mp4",
		"720p":  "https://blob.example.com/v/abc/720p.mp4",
	}

	value, err := m.Value()
	assert.NoError(t, err)

	var scanned QualityMap
	err = scanned.Scan(value)
	assert.NoError(t, err)
	assert.Equal(t, m, scanned)
}

func TestQualityMapScanNil(t *testing.T) {
	var m QualityMap
	err := m.Scan(nil)

	assert.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}
