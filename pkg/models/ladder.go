package models

// QualityRung defines one fixed rung of the encoding ladder: a quality
// label, target frame size, and the bitrate cap with its VBV buffer.
type QualityRung struct {
	Label   string `json:"label"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bitrate string `json:"bitrate"`
	BufSize string `json:"buf_size"`
}

// Fixed ladder rungs, highest resolution first.
var (
	Rung2160p = QualityRung{
		Label:   "2160p",
		Width:   3840,
		Height:  2160,
		Bitrate: "12000k",
		BufSize: "24000k",
	}

	Rung1440p = QualityRung{
		Label:   "1440p",
		Width:   2560,
		Height:  1440,
		Bitrate: "8000k",
		BufSize: "16000k",
	}

	Rung1080p = QualityRung{
		Label:   "1080p",
		Width:   1920,
		Height:  1080,
		Bitrate: "5000k",
		BufSize: "10000k",
	}

	Rung720p = QualityRung{
		Label:   "720p",
		Width:   1280,
		Height:  720,
		Bitrate: "2800k",
		BufSize: "5600k",
	}

	Rung480p = QualityRung{
		Label:   "480p",
		Width:   854,
		Height:  480,
		Bitrate: "1400k",
		BufSize: "2800k",
	}
)

// QualityLadder returns the fixed rungs in descending resolution order.
func QualityLadder() []QualityRung {
	return []QualityRung{
		Rung2160p,
		Rung1440p,
		Rung1080p,
		Rung720p,
		Rung480p,
	}
}

// RungsForSource selects the ladder rungs applicable to a source of
// the given native height. Rungs taller than the source are dropped so
// the encoder never upscales.
func RungsForSource(sourceHeight int) []QualityRung {
	var selected []QualityRung
	for _, rung := range QualityLadder() {
		if rung.Height <= sourceHeight {
			selected = append(selected, rung)
		}
	}
	return selected
}
