package effects

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/ivlev/timeline2video/internal/system"
)

// Overlay produces the lazy frame sequence for one weather effect. All
// particle state lives here, owned by the caller for the whole render: frame
// n deterministically follows frame n-1 for a fixed seed. Частицы обходятся и
// респавнятся строго в порядке среза из единственного ГСЧ, поэтому анимация
// воспроизводима при фиксированном seed.
type Overlay struct {
	kind          Kind
	width, height int
	fps           int

	total    int // frames to produce: ceil(duration * fps)
	produced int

	dt      float64 // seconds per frame
	elapsed float64

	rng       *rand.Rand
	particles []particle
}

// NewOverlay builds a freshly seeded particle population for the requested
// effect. A zero seed is replaced with the current time, so each call yields
// an independent animation; a fixed seed gives a deterministic replay.
func NewOverlay(kind Kind, durationSeconds float64, fps, width, height int, intensity float64, seed int64) (*Overlay, error) {
	switch kind {
	case Rain, Snow, Fire:
	default:
		return nil, &UnsupportedEffectError{Kind: string(kind)}
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	o := &Overlay{
		kind:   kind,
		width:  width,
		height: height,
		fps:    fps,
		total:  int(math.Ceil(durationSeconds * float64(fps))),
		dt:     1.0 / float64(fps),
		rng:    rand.New(rand.NewSource(seed)),
	}

	count := ParticleCount(kind, intensity, width, height)
	o.particles = make([]particle, count)
	for i := range o.particles {
		o.spawn(&o.particles[i], true)
	}

	return o, nil
}

// FrameCount returns the total number of frames the overlay will produce.
func (o *Overlay) FrameCount() int { return o.total }

// PopulationSize returns the invariant number of active particles.
func (o *Overlay) PopulationSize() int { return len(o.particles) }

// Next advances the simulation by one frame step and renders it into a
// transparent RGBA buffer taken from the shared frame pool. The caller owns
// the buffer until it returns it with Release. ok is false once all frames
// have been produced.
func (o *Overlay) Next() (frame *image.RGBA, ok bool) {
	if o.produced >= o.total {
		return nil, false
	}

	img := system.GetImage(image.Rect(0, 0, o.width, o.height))
	clear(img.Pix)

	for i := range o.particles {
		p := &o.particles[i]
		o.advance(p)
		o.draw(img, p)
	}

	o.produced++
	o.elapsed += o.dt
	return img, true
}

// Release returns a frame buffer obtained from Next to the pool.
func (o *Overlay) Release(frame *image.RGBA) {
	system.PutImage(frame)
}

// spawn (re)initializes a particle at its source edge. initial placements are
// scattered over the whole travel range so the first frame is already filled.
func (o *Overlay) spawn(p *particle, initial bool) {
	w, h := float64(o.width), float64(o.height)

	switch o.kind {
	case Rain:
		p.x = o.rng.Float64() * w
		if initial {
			p.y = o.rng.Float64() * h
		} else {
			p.y = -o.rng.Float64() * 100
		}
		p.vy = 800 + o.rng.Float64()*400
		p.drift = -10 + o.rng.Float64()*20 // слабый боковой снос
		p.size = 1 + o.rng.Intn(3)
		p.opacity = 0.3 + o.rng.Float64()*0.4

	case Snow:
		p.x = o.rng.Float64() * w
		if initial {
			p.y = o.rng.Float64() * h
		} else {
			p.y = -o.rng.Float64() * 100
		}
		p.vy = 50 + o.rng.Float64()*100
		p.drift = -20 + o.rng.Float64()*40
		p.phase = o.rng.Float64() * 2 * math.Pi
		p.size = 2 + o.rng.Intn(5)
		p.opacity = 0.5 + o.rng.Float64()*0.4

	case Fire:
		p.x = w*0.3 + o.rng.Float64()*w*0.4 // пламя по центру нижней кромки
		p.y = h*0.8 + o.rng.Float64()*h*0.2
		p.vy = 200 + o.rng.Float64()*200
		p.drift = -30 + o.rng.Float64()*60
		p.size = 3 + o.rng.Intn(6)
		p.opacity = 0.5 + o.rng.Float64()*0.4
		p.age = 0
		p.lifetime = 1.0 + o.rng.Float64()*1.5
	}
}

// advance moves a particle one frame step and respawns it when it leaves the
// frame bounds, keeping the population size invariant.
func (o *Overlay) advance(p *particle) {
	w, h := float64(o.width), float64(o.height)

	switch o.kind {
	case Rain:
		p.y += p.vy * o.dt
		p.x += p.drift * o.dt
		if p.y > h || p.x < -10 || p.x > w+10 {
			o.spawn(p, false)
		}

	case Snow:
		p.y += p.vy * o.dt
		sway := snowSwayAmp * math.Sin(2*math.Pi*snowSwayFreq*o.elapsed+p.phase)
		p.x += (p.drift + sway) * o.dt
		// wraparound по горизонтали
		if p.x < 0 {
			p.x += w
		} else if p.x > w {
			p.x -= w
		}
		if p.y > h {
			o.spawn(p, false)
		}

	case Fire:
		p.y -= p.vy * o.dt
		p.x += p.drift * o.dt
		p.vy *= fireVelocityDecay
		p.opacity *= fireOpacityDecay
		p.age += o.dt
		if p.y < 0 || p.age > p.lifetime || p.opacity < 0.1 {
			o.spawn(p, false)
		}
	}
}

const (
	snowSwayAmp  = 15.0 // px/s
	snowSwayFreq = 0.5  // Hz

	fireVelocityDecay = 0.99
	fireOpacityDecay  = 0.98
)

func (o *Overlay) draw(img *image.RGBA, p *particle) {
	switch o.kind {
	case Rain:
		o.drawStreak(img, p)
	case Snow:
		o.drawFlake(img, p)
	case Fire:
		o.drawFlame(img, p)
	}
}

// drawStreak renders an elongated semi-transparent rain drop.
func (o *Overlay) drawStreak(img *image.RGBA, p *particle) {
	x, y := int(p.x), int(p.y)
	if x < 0 || x >= o.width {
		return
	}

	alpha := uint8(255 * p.opacity * 0.7)
	length := p.size * 3
	for i := 0; i < length; i++ {
		yy := y + i
		if yy < 0 || yy >= o.height {
			continue
		}
		img.Set(x, yy, color.NRGBA{R: 200, G: 200, B: 255, A: alpha})
	}
}

// drawFlake renders a soft near-white disc.
func (o *Overlay) drawFlake(img *image.RGBA, p *particle) {
	x, y := int(p.x), int(p.y)
	r := p.size
	r2 := r * r

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			px, py := x+dx, y+dy
			if px < 0 || px >= o.width || py < 0 || py >= o.height {
				continue
			}
			img.Set(px, py, color.NRGBA{R: 255, G: 255, B: 250, A: uint8(255 * p.opacity)})
		}
	}
}

// drawFlame renders a radially faded disc whose color ages from yellow
// through orange to red and whose alpha dies out near end-of-life.
func (o *Overlay) drawFlame(img *image.RGBA, p *particle) {
	x, y := int(p.x), int(p.y)
	r := p.size

	frac := 0.0
	if p.lifetime > 0 {
		frac = p.age / p.lifetime
	}
	if frac > 1 {
		frac = 1
	}
	tint := flameColor(frac)
	lifeFade := 1.0 - frac

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist > float64(r) {
				continue
			}
			px, py := x+dx, y+dy
			if px < 0 || px >= o.width || py < 0 || py >= o.height {
				continue
			}
			radialFade := 1.0 - dist/float64(r)
			alpha := uint8(255 * p.opacity * radialFade * lifeFade)
			img.Set(px, py, color.NRGBA{R: tint.R, G: tint.G, B: tint.B, A: alpha})
		}
	}
}

// flameColor interpolates yellow -> orange -> red over the particle lifetime.
func flameColor(frac float64) color.NRGBA {
	yellow := color.NRGBA{R: 255, G: 220, B: 0}
	orange := color.NRGBA{R: 255, G: 100, B: 0}
	red := color.NRGBA{R: 200, G: 0, B: 0}

	if frac < 0.5 {
		return lerpColor(yellow, orange, frac*2)
	}
	return lerpColor(orange, red, (frac-0.5)*2)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
	}
}
