package effects

import (
	"fmt"
	"math"
	"strings"
)

// Kind is a closed set of weather overlay variants. Adding a new effect means
// adding a variant arm in overlay.go, not registering a class at runtime.
type Kind string

const (
	Rain Kind = "rain"
	Snow Kind = "snow"
	Fire Kind = "fire"
)

// UnsupportedEffectError is returned for an effect kind outside the catalog.
type UnsupportedEffectError struct {
	Kind string
}

func (e *UnsupportedEffectError) Error() string {
	return fmt.Sprintf("unsupported weather effect %q (available: rain, snow, fire)", e.Kind)
}

// ParseKind maps a request string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case Rain:
		return Rain, nil
	case Snow:
		return Snow, nil
	case Fire:
		return Fire, nil
	default:
		return "", &UnsupportedEffectError{Kind: s}
	}
}

// Catalog returns the static effect catalog: name -> human description.
func Catalog() map[string]string {
	return map[string]string{
		string(Rain): "Falling rain streaks",
		string(Snow): "Drifting snowflakes",
		string(Fire): "Rising fire particles",
	}
}

// Базовое число частиц на кадр 1920x1080 при интенсивности 1.0.
// Итоговое число масштабируется по интенсивности и по площади кадра,
// чтобы визуальная плотность не зависела от разрешения.
const (
	rainBaseCount = 100
	snowBaseCount = 80
	fireBaseCount = 150

	refFrameArea = 1920.0 * 1080.0
)

// ParticleCount returns the constant population size for a kind at the given
// intensity and frame size. Zero intensity means an empty (no-op) overlay;
// any positive intensity keeps at least one particle, even on tiny frames
// where the area scale would round the count away.
func ParticleCount(kind Kind, intensity float64, width, height int) int {
	if intensity <= 0 {
		return 0
	}
	if intensity > 1 {
		intensity = 1
	}

	var base float64
	switch kind {
	case Rain:
		base = rainBaseCount
	case Snow:
		base = snowBaseCount
	case Fire:
		base = fireBaseCount
	default:
		return 0
	}

	areaScale := float64(width*height) / refFrameArea
	count := int(math.Round(base * intensity * areaScale))
	if count < 1 {
		count = 1
	}
	return count
}

// particle is one animated element of the overlay. Velocities are px/s; the
// simulation advances by 1/fps per produced frame.
type particle struct {
	x, y     float64
	vy       float64 // vertical speed (down for rain/snow, up for fire)
	drift    float64 // lateral speed
	phase    float64 // sway phase offset (snow)
	size     int
	opacity  float64
	age      float64 // seconds alive (fire)
	lifetime float64 // seconds until forced respawn (fire)
}
