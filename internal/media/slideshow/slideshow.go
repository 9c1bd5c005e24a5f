// Package slideshow builds and runs the ffmpeg invocation that turns a
// batch of still images into a vertical video.
//
// Each image becomes a fixed-duration segment scaled to fit the target
// frame and padded onto a solid background, then the segments are
// concatenated. When a soundtrack is configured it loops underneath the
// video and is cut at the video's length.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Options controls slideshow geometry, timing, and encoding.
type Options struct {
	FFmpegBinary   string
	Width          int
	Height         int
	FPS            int
	ImageDuration  float64
	Background     string
	Preset         string
	SoundtrackPath string
}

func (o Options) normalized() Options {
	if strings.TrimSpace(o.FFmpegBinary) == "" {
		o.FFmpegBinary = "ffmpeg"
	}
	if o.Background == "" {
		o.Background = "white"
	}
	if o.Preset == "" {
		o.Preset = "medium"
	}
	return o
}

// TotalDuration returns the expected video duration for n images.
func (o Options) TotalDuration(n int) float64 {
	return float64(n) * o.ImageDuration
}

// BuildArgs constructs the full ffmpeg argument list for rendering the
// given images to outputPath.
func BuildArgs(images []string, outputPath string, opts Options) ([]string, error) {
	if len(images) == 0 {
		return nil, errors.New("slideshow: no images")
	}
	if strings.TrimSpace(outputPath) == "" {
		return nil, errors.New("slideshow: empty output path")
	}
	opts = opts.normalized()
	if opts.Width < 2 || opts.Height < 2 {
		return nil, fmt.Errorf("slideshow: invalid resolution %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS < 1 {
		return nil, fmt.Errorf("slideshow: invalid fps %d", opts.FPS)
	}
	if opts.ImageDuration <= 0 {
		return nil, fmt.Errorf("slideshow: invalid image duration %v", opts.ImageDuration)
	}

	duration := strconv.FormatFloat(opts.ImageDuration, 'f', -1, 64)

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, image := range images {
		args = append(args, "-loop", "1", "-t", duration, "-i", image)
	}

	hasAudio := strings.TrimSpace(opts.SoundtrackPath) != ""
	if hasAudio {
		args = append(args, "-stream_loop", "-1", "-i", opts.SoundtrackPath)
	}

	args = append(args, "-filter_complex", buildFilter(len(images), opts))
	args = append(args, "-map", "[v]")
	if hasAudio {
		args = append(args,
			"-map", fmt.Sprintf("%d:a", len(images)),
			"-c:a", "aac",
			"-b:a", "128k",
			"-shortest",
		)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	)
	return args, nil
}

func buildFilter(imageCount int, opts Options) string {
	var filter strings.Builder
	for i := 0; i < imageCount; i++ {
		fmt.Fprintf(&filter,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s,setsar=1,fps=%d[v%d];",
			i, opts.Width, opts.Height, opts.Width, opts.Height, opts.Background, opts.FPS, i,
		)
	}
	for i := 0; i < imageCount; i++ {
		fmt.Fprintf(&filter, "[v%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[v]", imageCount)
	return filter.String()
}

// Render executes ffmpeg for the given images. The caller bounds the run
// with ctx; ffmpeg is killed when it expires.
func Render(ctx context.Context, images []string, outputPath string, opts Options) error {
	opts = opts.normalized()
	args, err := BuildArgs(images, outputPath, opts)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, opts.FFmpegBinary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("slideshow render: %w", ctx.Err())
		}
		return fmt.Errorf("slideshow render: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
