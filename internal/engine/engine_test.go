package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/resources"
	"github.com/ivlev/timeline2video/internal/timeline"
	"github.com/ivlev/timeline2video/internal/video"
)

// fakeEncoder counts frames instead of spawning ffmpeg.
type fakeEncoder struct {
	outPath string
	audio   *video.AudioOptions
	frames  int
	closed  bool
}

func (e *fakeEncoder) Begin(ctx context.Context, outPath string, cfg *config.RenderConfig, audio *video.AudioOptions) (video.FrameSink, error) {
	e.outPath = outPath
	e.audio = audio
	return e, nil
}

func (e *fakeEncoder) Write(frame *image.RGBA) error {
	e.frames++
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closed = true
	return nil
}

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func testProject(t *testing.T) (*Project, *fakeEncoder, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Width = 64
	cfg.Height = 36
	cfg.FPS = 24

	enc := &fakeEncoder{}
	p := NewProject(cfg, enc, &resources.Resolver{Root: dir})
	p.Seed = 1
	return p, enc, dir
}

func testRequest(t *testing.T, dir string) *Request {
	a := writeTestPNG(t, dir, "a.png")
	b := writeTestPNG(t, dir, "b.png")

	return &Request{
		Title: "Morning Forecast",
		Timeline: &timeline.Timeline{
			ID: "aabbccdd-0000-0000-0000-000000000000",
			Entries: []timeline.Entry{
				{Text: "one", ImagePath: a, StartMS: 0, EndMS: 3000},
				{Text: "two", ImagePath: b, StartMS: 3000, EndMS: 6000},
			},
			TotalDurationMS: 6000,
		},
	}
}

func TestRun(t *testing.T) {
	p, enc, dir := testProject(t)
	req := testRequest(t, dir)

	result, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected success")
	}
	if result.ClipsCount != 2 {
		t.Errorf("Expected 2 clips, got %d", result.ClipsCount)
	}
	if result.DurationSeconds != 6.0 {
		t.Errorf("Expected 6.0s, got %f", result.DurationSeconds)
	}

	// 6.0s * 24fps
	if enc.frames != 144 {
		t.Errorf("Expected 144 frames, got %d", enc.frames)
	}
	if !enc.closed {
		t.Error("Expected the sink to be closed")
	}
	if enc.audio != nil {
		t.Error("Expected no audio without background music")
	}

	// Output naming: <videos>/<slug>/<slug>_<id8>.mp4
	if !strings.HasSuffix(result.VideoPath, filepath.Join("morning_forecast", "morning_forecast_aabbccdd.mp4")) {
		t.Errorf("Unexpected output path: %s", result.VideoPath)
	}
}

func TestRunRepeatedRequest(t *testing.T) {
	p, enc, dir := testProject(t)

	// Relative names resolve against the images root on every run
	imagesDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeTestPNG(t, imagesDir, "a.png")
	writeTestPNG(t, imagesDir, "b.png")

	req := &Request{
		Title: "Repeat",
		Timeline: &timeline.Timeline{
			ID: "aabbccdd-0000-0000-0000-000000000000",
			Entries: []timeline.Entry{
				{ImagePath: "a.png", StartMS: 0, EndMS: 1000},
				{ImagePath: "b.png", StartMS: 1000, EndMS: 2000},
			},
			TotalDurationMS: 2000,
		},
	}

	for run := 0; run < 2; run++ {
		result, err := p.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}
		if !result.Success {
			t.Fatalf("Run %d: expected success", run)
		}
	}

	// The request is not rewritten between runs
	if req.Timeline.Entries[0].ImagePath != "a.png" {
		t.Errorf("Request mutated: %s", req.Timeline.Entries[0].ImagePath)
	}
	if enc.frames != 2*48 {
		t.Errorf("Expected 96 frames over two runs, got %d", enc.frames)
	}
}

func TestRunWithEffect(t *testing.T) {
	p, enc, dir := testProject(t)
	req := testRequest(t, dir)
	req.WeatherEffect = "snow"

	result, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected success")
	}
	if enc.frames != 144 {
		t.Errorf("Expected 144 frames, got %d", enc.frames)
	}
}

func TestRunUnknownEffect(t *testing.T) {
	p, _, dir := testProject(t)
	req := testRequest(t, dir)
	req.WeatherEffect = "earthquake"

	_, err := p.Run(context.Background(), req)
	var uerr *effects.UnsupportedEffectError
	if !errors.As(err, &uerr) {
		t.Fatalf("Expected UnsupportedEffectError, got %v", err)
	}
}

func TestRunInvalidTimeline(t *testing.T) {
	p, _, dir := testProject(t)
	req := testRequest(t, dir)
	req.Timeline.Entries[1].StartMS = 4000 // gap

	_, err := p.Run(context.Background(), req)
	var verr *timeline.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestRunMissingMusicDegrades(t *testing.T) {
	p, enc, dir := testProject(t)
	req := testRequest(t, dir)
	req.BackgroundMusic = "no_such_track.mp3"

	result, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Missing music is a warning, never a failed render
	if !result.Success {
		t.Error("Expected success despite missing music")
	}
	if enc.audio != nil {
		t.Error("Expected silent render for unreadable music")
	}
	if !strings.Contains(result.Message, "warning") {
		t.Errorf("Expected warning in message, got: %s", result.Message)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Morning Forecast", "morning_forecast"},
		{"Hello, World!", "hello_world"},
		{"  spaces  ", "spaces"},
		{"Видео без латиницы", "video"},
		{"", "video"},
		{"a--b__c", "a_b_c"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.expected {
			t.Errorf("Slugify(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("aabbccdd-0000-0000-0000-000000000000"); got != "aabbccdd" {
		t.Errorf("Expected aabbccdd, got %s", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}

	// File names embed exactly this fragment, download links rely on it
	p, _, _ := testProject(t)
	path := p.OutputPath("Demo", "aabbccdd-0000-0000-0000-000000000000")
	if !strings.HasSuffix(path, "demo_aabbccdd.mp4") {
		t.Errorf("Unexpected output path: %s", path)
	}
}

func TestWriteShareCard(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")

	out, err := WriteShareCard(videoPath, "http://localhost:8090/api/video/download/abc123")
	if err != nil {
		t.Fatalf("WriteShareCard failed: %v", err)
	}
	if !strings.HasSuffix(out, "clip_qr.png") {
		t.Errorf("Unexpected share card path: %s", out)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Share card not written: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("Share card is not a valid PNG: %v", err)
	}
}
