package slideshow_test

import (
	"strings"
	"testing"

	"reelsmith/internal/media/slideshow"
)

func baseOptions() slideshow.Options {
	return slideshow.Options{
		Width:         1080,
		Height:        1920,
		FPS:           24,
		ImageDuration: 4,
		Background:    "white",
		Preset:        "medium",
	}
}

func TestBuildArgsSilent(t *testing.T) {
	images := []string{"/tmp/a.jpg", "/tmp/b.png", "/tmp/c.jpg"}
	args, err := slideshow.BuildArgs(images, "/tmp/out.mp4", baseOptions())
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")

	if got := strings.Count(joined, "-loop 1 -t 4 -i "); got != 3 {
		t.Fatalf("expected 3 image inputs, got %d in %q", got, joined)
	}
	if !strings.Contains(joined, "concat=n=3:v=1:a=0[v]") {
		t.Fatalf("missing concat filter: %q", joined)
	}
	if !strings.Contains(joined, "scale=1080:1920:force_original_aspect_ratio=decrease") {
		t.Fatalf("missing scale filter: %q", joined)
	}
	if !strings.Contains(joined, "pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=white") {
		t.Fatalf("missing pad filter: %q", joined)
	}
	if !strings.Contains(joined, "-c:v libx264 -preset medium -pix_fmt yuv420p") {
		t.Fatalf("missing encoder settings: %q", joined)
	}
	if strings.Contains(joined, "-c:a") {
		t.Fatalf("unexpected audio settings in silent render: %q", joined)
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Fatalf("expected output path last, got %q", args[len(args)-1])
	}
}

func TestBuildArgsWithSoundtrack(t *testing.T) {
	opts := baseOptions()
	opts.SoundtrackPath = "/assets/track.mp3"

	images := []string{"/tmp/a.jpg", "/tmp/b.jpg"}
	args, err := slideshow.BuildArgs(images, "/tmp/out.mp4", opts)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-stream_loop -1 -i /assets/track.mp3") {
		t.Fatalf("missing looped soundtrack input: %q", joined)
	}
	if !strings.Contains(joined, "-map 2:a") {
		t.Fatalf("expected audio mapped from input 2: %q", joined)
	}
	if !strings.Contains(joined, "-c:a aac") {
		t.Fatalf("missing aac encoder: %q", joined)
	}
	if !strings.Contains(joined, "-shortest") {
		t.Fatalf("missing -shortest: %q", joined)
	}
}

func TestBuildArgsFractionalDuration(t *testing.T) {
	opts := baseOptions()
	opts.ImageDuration = 2.5

	args, err := slideshow.BuildArgs([]string{"/tmp/a.jpg"}, "/tmp/out.mp4", opts)
	if err != nil {
		t.Fatalf("BuildArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-t 2.5 -i /tmp/a.jpg") {
		t.Fatalf("expected fractional duration preserved: %q", joined)
	}
}

func TestBuildArgsValidation(t *testing.T) {
	if _, err := slideshow.BuildArgs(nil, "/tmp/out.mp4", baseOptions()); err == nil {
		t.Fatal("expected error for no images")
	}
	if _, err := slideshow.BuildArgs([]string{"/tmp/a.jpg"}, "", baseOptions()); err == nil {
		t.Fatal("expected error for empty output path")
	}

	opts := baseOptions()
	opts.FPS = 0
	if _, err := slideshow.BuildArgs([]string{"/tmp/a.jpg"}, "/tmp/out.mp4", opts); err == nil {
		t.Fatal("expected error for zero fps")
	}

	opts = baseOptions()
	opts.ImageDuration = 0
	if _, err := slideshow.BuildArgs([]string{"/tmp/a.jpg"}, "/tmp/out.mp4", opts); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestTotalDuration(t *testing.T) {
	opts := baseOptions()
	if got := opts.TotalDuration(10); got != 40 {
		t.Fatalf("expected 40s, got %v", got)
	}
}
