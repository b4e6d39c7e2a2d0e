package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestTimeline(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "old.json")
	fresh := filepath.Join(dir, "fresh.json")
	other := filepath.Join(dir, "notes.txt")

	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	// Make mtimes unambiguous
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := FindLatestTimeline(dir)
	if err != nil {
		t.Fatalf("FindLatestTimeline failed: %v", err)
	}
	if got != fresh {
		t.Errorf("Expected %s, got %s", fresh, got)
	}
}

func TestFindLatestTimelineEmpty(t *testing.T) {
	if _, err := FindLatestTimeline(t.TempDir()); err == nil {
		t.Error("Expected error for directory without timelines")
	}
}

func TestRenderWorkers(t *testing.T) {
	workers := RenderWorkers(1920, 1080)
	if workers < 1 {
		t.Errorf("Expected at least one worker, got %d", workers)
	}

	// Absurdly large frames must still leave one worker
	huge := RenderWorkers(100000, 100000)
	if huge < 1 {
		t.Errorf("Expected at least one worker for huge frames, got %d", huge)
	}
}

func TestImagePoolReuse(t *testing.T) {
	img := GetImage(image.Rect(0, 0, 64, 36))
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 36 {
		t.Fatalf("Unexpected bounds: %v", img.Bounds())
	}

	img.Pix[0] = 0xAA
	PutImage(img)

	// The pool does not clear buffers, callers must
	again := GetImage(image.Rect(0, 0, 64, 36))
	if again.Bounds().Dx() != 64 || again.Bounds().Dy() != 36 {
		t.Fatalf("Unexpected bounds after reuse: %v", again.Bounds())
	}
	PutImage(again)
}
