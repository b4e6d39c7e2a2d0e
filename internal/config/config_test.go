package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("Expected 1920x1080, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 24 {
		t.Errorf("Expected 24 fps, got %d", cfg.FPS)
	}
	if cfg.Codec != "libx264" || cfg.AudioCodec != "aac" {
		t.Errorf("Unexpected codecs: %s/%s", cfg.Codec, cfg.AudioCodec)
	}
	if cfg.Bitrate != "5000k" || cfg.AudioBitrate != "192k" {
		t.Errorf("Unexpected bitrates: %s/%s", cfg.Bitrate, cfg.AudioBitrate)
	}
	if cfg.WeatherEffectIntensity != 0.3 {
		t.Errorf("Expected intensity 0.3, got %f", cfg.WeatherEffectIntensity)
	}
	if cfg.BackgroundMusicVolume != 0.3 {
		t.Errorf("Expected volume 0.3, got %f", cfg.BackgroundMusicVolume)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	yaml := "width: 1280\nheight: 720\nfps: 30\nweather_effect_intensity: 0.8\n"
	path := filepath.Join(t.TempDir(), "render.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Width != 1280 || cfg.Height != 720 || cfg.FPS != 30 {
		t.Errorf("Overrides not applied: %dx%d @ %d", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.WeatherEffectIntensity != 0.8 {
		t.Errorf("Expected intensity 0.8, got %f", cfg.WeatherEffectIntensity)
	}

	// Untouched fields keep their defaults
	if cfg.Codec != "libx264" {
		t.Errorf("Expected default codec, got %s", cfg.Codec)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	yaml := "width: 1281\n" // odd width breaks yuv420p
	path := filepath.Join(t.TempDir(), "render.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for odd width")
	}
}

func TestValidate(t *testing.T) {
	bad := []func(*RenderConfig){
		func(c *RenderConfig) { c.Width = 0 },
		func(c *RenderConfig) { c.Height = -10 },
		func(c *RenderConfig) { c.Width = 1921 },
		func(c *RenderConfig) { c.FPS = 0 },
		func(c *RenderConfig) { c.WeatherEffectIntensity = 1.5 },
		func(c *RenderConfig) { c.BackgroundMusicVolume = -0.1 },
	}

	for i, mutate := range bad {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("Case %d: expected validation error", i)
		}
	}
}

func TestResolution(t *testing.T) {
	cfg := &RenderConfig{Width: 1280, Height: 720}
	if got := cfg.Resolution(); got != "1280x720" {
		t.Errorf("Expected 1280x720, got %s", got)
	}
}
