package encoder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseforge/vod/pkg/models"
)

func flagValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, arg := range args {
		if arg == flag {
			require.Less(t, i+1, len(args), "flag %s has no value", flag)
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func TestEncodeArgsPinRungHeight(t *testing.T) {
	// A 960x720 (4:3) source is eligible for the 720p rung. Scaling by
	// height keeps it at 960x720; scaling by the rung's 16:9 width
	// would upscale it to 1280x960, taller than the source.
	for _, rung := range models.QualityLadder() {
		args := encodeArgs("in.mp4", "out.mp4", "medium", rung)

		assert.Equal(t, fmt.Sprintf("scale=-2:%d", rung.Height), flagValue(t, args, "-vf"),
			"rung %s must constrain height, not width", rung.Label)
	}
}

func TestEncodeArgsBitrateCap(t *testing.T) {
	args := encodeArgs("in.mp4", "out.mp4", "fast", models.Rung1080p)

	assert.Equal(t, "5000k", flagValue(t, args, "-b:v"))
	assert.Equal(t, "5000k", flagValue(t, args, "-maxrate"))
	assert.Equal(t, "10000k", flagValue(t, args, "-bufsize"))
	assert.Equal(t, "fast", flagValue(t, args, "-preset"))
	assert.Equal(t, "out.mp4", args[len(args)-1])
}
