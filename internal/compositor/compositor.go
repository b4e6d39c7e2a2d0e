package compositor

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/ivlev/timeline2video/internal/clips"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/video"
)

// Render walks the concatenated clip sequence frame by frame, over-blends the
// weather overlay when one was requested, and streams raw frames into the
// sink. The overlay is consumed in lockstep with playback and is independent
// of clip boundaries. Cancellation is checked at every frame boundary so an
// aborted render stops between frames; the sink discards partial output on
// Close.
//
// Returns the number of frames emitted.
func Render(ctx context.Context, sequence []*clips.Clip, overlay *effects.Overlay, sink video.FrameSink, fps int) (int, error) {
	if len(sequence) == 0 {
		return 0, fmt.Errorf("пустая последовательность клипов")
	}

	totalDuration := 0.0
	for _, c := range sequence {
		totalDuration += c.Duration
	}
	totalFrames := int(math.Ceil(totalDuration*float64(fps) - 1e-9))

	bounds := sequence[0].Image.Bounds()
	idx := 0
	clipEnd := sequence[0].Duration

	for f := 0; f < totalFrames; f++ {
		if err := ctx.Err(); err != nil {
			return f, err
		}

		// Кадр f показывается в момент f/fps; подбираем активный клип.
		t := float64(f) / float64(fps)
		for t >= clipEnd-1e-9 && idx < len(sequence)-1 {
			idx++
			clipEnd += sequence[idx].Duration
		}
		base := sequence[idx].Image

		if overlay == nil {
			if err := sink.Write(base); err != nil {
				return f, err
			}
			continue
		}

		buf := system.GetImage(bounds)
		draw.Draw(buf, bounds, base, image.Point{}, draw.Src)

		if frame, ok := overlay.Next(); ok {
			// Стандартное "over": out = fg*a + bg*(1-a), по каждому каналу.
			draw.Draw(buf, bounds, frame, image.Point{}, draw.Over)
			overlay.Release(frame)
		}

		err := sink.Write(buf)
		system.PutImage(buf)
		if err != nil {
			return f, err
		}
	}

	return totalFrames, nil
}
