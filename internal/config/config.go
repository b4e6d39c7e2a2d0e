package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RenderConfig is the immutable parameter bundle for one render. Transition
// and Ken Burns fields are carried for forward compatibility and reported by
// the config endpoint, but the compositing path deliberately ignores them.
type RenderConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	Codec        string `yaml:"codec"`
	AudioCodec   string `yaml:"audio_codec"`
	Bitrate      string `yaml:"bitrate"`
	AudioBitrate string `yaml:"audio_bitrate"`

	FadeDuration      float64 `yaml:"fade_duration"`
	CrossfadeDuration float64 `yaml:"crossfade_duration"`

	KenBurnsEnabled    bool    `yaml:"ken_burns_enabled"`
	KenBurnsZoomFactor float64 `yaml:"ken_burns_zoom_factor"`
	PanEnabled         bool    `yaml:"pan_enabled"`
	PanDistance        int     `yaml:"pan_distance"`

	WeatherEffectsEnabled  bool    `yaml:"weather_effects_enabled"`
	WeatherEffectIntensity float64 `yaml:"weather_effect_intensity"`

	BackgroundMusicVolume float64 `yaml:"background_music_volume"`
}

// Default returns the stock 1080p/24fps configuration.
func Default() *RenderConfig {
	return &RenderConfig{
		Width:  1920,
		Height: 1080,
		FPS:    24,

		Codec:        "libx264",
		AudioCodec:   "aac",
		Bitrate:      "5000k",
		AudioBitrate: "192k",

		FadeDuration:      0.5,
		CrossfadeDuration: 0.5,

		KenBurnsEnabled:    true,
		KenBurnsZoomFactor: 1.1,
		PanEnabled:         true,
		PanDistance:        50,

		WeatherEffectsEnabled:  true,
		WeatherEffectIntensity: 0.3,

		BackgroundMusicVolume: 0.3,
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*RenderConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфига %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the encoder or the overlay cannot honor.
func (c *RenderConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		// yuv420p требует чётных размеров
		return fmt.Errorf("resolution must be even, got %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.WeatherEffectIntensity < 0 || c.WeatherEffectIntensity > 1 {
		return fmt.Errorf("weather_effect_intensity must be in [0,1], got %f", c.WeatherEffectIntensity)
	}
	if c.BackgroundMusicVolume < 0 || c.BackgroundMusicVolume > 1 {
		return fmt.Errorf("background_music_volume must be in [0,1], got %f", c.BackgroundMusicVolume)
	}
	return nil
}

// Resolution returns the "WxH" form ffmpeg expects.
func (c *RenderConfig) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}
