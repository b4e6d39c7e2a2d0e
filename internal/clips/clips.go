package clips

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
)

// Clip is one still image prepared for playback: scaled and letterboxed to
// the target resolution, shown for exactly Duration seconds.
type Clip struct {
	Text     string
	Image    *image.RGBA
	Duration float64
}

// ImageNotFoundError: путь записи не указывает на читаемый файл изображения.
type ImageNotFoundError struct {
	Path string
}

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("image not found: %s", e.Path)
}

// UnsupportedImageFormatError: файл существует, но его не удалось декодировать.
type UnsupportedImageFormatError struct {
	Path string
	Err  error
}

func (e *UnsupportedImageFormatError) Error() string {
	return fmt.Sprintf("unsupported or corrupt image %s: %v", e.Path, e.Err)
}

func (e *UnsupportedImageFormatError) Unwrap() error { return e.Err }

// Build maps every timeline entry onto a Clip, preserving order. Images are
// loaded and scaled in parallel, but any failure cancels the whole build:
// a render never produces partial output. The timeline must already be
// validated, so entry durations are trusted as-is.
func Build(ctx context.Context, tl *timeline.Timeline, width, height int) ([]*Clip, error) {
	result := make([]*Clip, len(tl.Entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(system.RenderWorkers(width, height))

	for i := range tl.Entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			entry := &tl.Entries[i]
			img, err := loadImage(entry.ImagePath)
			if err != nil {
				return err
			}

			result[i] = &Clip{
				Text:     entry.Text,
				Image:    Letterbox(img, width, height),
				Duration: entry.DurationSeconds(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Letterbox scales src to fit width x height preserving aspect ratio and pads
// the remainder with a neutral (black) background. It never crops and never
// distorts the aspect ratio.
func Letterbox(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	scale := float64(width) / float64(sw)
	if s := float64(height) / float64(sh); s < scale {
		scale = s
	}

	dw := int(float64(sw)*scale + 0.5)
	dh := int(float64(sh)*scale + 0.5)
	if dw > width {
		dw = width
	}
	if dh > height {
		dh = height
	}

	x0 := (width - dw) / 2
	y0 := (height - dh) / 2
	target := image.Rect(x0, y0, x0+dw, y0+dh)

	xdraw.CatmullRom.Scale(dst, target, src, sb, xdraw.Src, nil)
	return dst
}
