package encoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/courseforge/vod/pkg/models"
)

// FFmpeg wraps ffmpeg and ffprobe invocations. Commands are always
// built from explicit argument lists, never from shell strings, and
// stderr is captured so a failed run carries its diagnostics.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	preset      string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath, preset string) *FFmpeg {
	if preset == "" {
		preset = "medium"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		preset:      preset,
	}
}

// ProbeResult holds the source properties the ladder needs.
type ProbeResult struct {
	Width    int
	Height   int
	Duration float64
	Codec    string
}

// probeOutput mirrors the ffprobe JSON layout
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe extracts the native resolution and duration of a video file.
func (f *FFmpeg) Probe(ctx context.Context, inputPath string) (*ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	result.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, stream := range out.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			result.Codec = stream.CodecName
			break
		}
	}

	if result.Height == 0 {
		return nil, fmt.Errorf("no video stream found in %s", inputPath)
	}

	return result, nil
}

// ProgressCallback is called with progress updates in percent.
type ProgressCallback func(progress float64)

var progressRegex = regexp.MustCompile(`out_time_ms=(\d+)`)

// encodeArgs builds the ffmpeg arguments for one rung. The scale
// filter pins the rung height and derives an even width from the
// source aspect ratio. Rung eligibility is decided by height, so
// pinning height here keeps a 4:3 or portrait source from being
// scaled past its native size. The moov atom is moved up front so
// browsers can start playback before the file finishes downloading.
func encodeArgs(inputPath, outputPath, preset string, rung models.QualityRung) []string {
	return []string{
		"-i", inputPath,
		"-y",
		"-c:v", "libx264",
		"-b:v", rung.Bitrate,
		"-maxrate", rung.Bitrate,
		"-bufsize", rung.BufSize,
		"-vf", fmt.Sprintf("scale=-2:%d", rung.Height),
		"-preset", preset,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		outputPath,
	}
}

// EncodeRung produces one constrained-bitrate rendition of the input.
func (f *FFmpeg) EncodeRung(ctx context.Context, inputPath, outputPath string, rung models.QualityRung, progressCB ProgressCallback) error {
	probe, err := f.Probe(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("failed to probe input: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, encodeArgs(inputPath, outputPath, f.preset, rung)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			matches := progressRegex.FindStringSubmatch(scanner.Text())
			if len(matches) < 2 {
				continue
			}
			timeMs, err := strconv.ParseFloat(matches[1], 64)
			if err != nil || probe.Duration <= 0 {
				continue
			}
			progress := (timeMs / 1000000.0 / probe.Duration) * 100
			if progress > 100 {
				progress = 100
			}
			if progressCB != nil {
				progressCB(progress)
			}
		}
	}()

	var stderrBuf bytes.Buffer
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			stderrBuf.WriteString(scanner.Text() + "\n")
		}
	}()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderrBuf.String())
	}

	if progressCB != nil {
		progressCB(100)
	}

	return nil
}
