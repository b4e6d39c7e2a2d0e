package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"

	"github.com/ivlev/timeline2video/internal/config"
)

// AudioOptions describes the background music mixed into the render.
type AudioOptions struct {
	Path   string
	Volume float64 // 0..1 amplitude scale
}

// FrameSink accepts the composited frame stream. Close finalizes the output;
// on any failure the partially written file is removed, never left behind as
// a truncated but valid-looking video.
type FrameSink interface {
	Write(frame *image.RGBA) error
	Close() error
}

// Encoder is the boundary to the external muxing/encoding backend.
type Encoder interface {
	Begin(ctx context.Context, outPath string, cfg *config.RenderConfig, audio *AudioOptions) (FrameSink, error)
}

// EncoderFailure is propagated verbatim: the core never retries encoding.
type EncoderFailure struct {
	Output string
	Err    error
}

func (e *EncoderFailure) Error() string {
	return fmt.Sprintf("ffmpeg error: %v, output: %s", e.Err, e.Output)
}

func (e *EncoderFailure) Unwrap() error { return e.Err }

// FFmpegEncoder реализует Encoder через системный FFmpeg: сырые RGBA-кадры
// передаются через stdin, фоновая музыка зацикливается (-stream_loop -1),
// масштабируется по громкости и обрезается по длине видео (-shortest).
type FFmpegEncoder struct{}

func (e *FFmpegEncoder) Begin(ctx context.Context, outPath string, cfg *config.RenderConfig, audio *AudioOptions) (FrameSink, error) {
	args := buildFFmpegArgs(outPath, cfg, audio)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return &ffmpegSink{cmd: cmd, stdin: stdin, log: &out, outPath: outPath}, nil
}

func buildFFmpegArgs(outPath string, cfg *config.RenderConfig, audio *AudioOptions) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", cfg.Resolution(),
		"-framerate", fmt.Sprintf("%d", cfg.FPS),
		"-i", "-",
	}

	if audio != nil {
		args = append(args, "-stream_loop", "-1", "-i", audio.Path)
	}

	args = append(args, "-map", "0:v")

	if audio != nil {
		args = append(args,
			"-filter_complex", fmt.Sprintf("[1:a]volume=%f[bg]", audio.Volume),
			"-map", "[bg]",
			"-shortest",
			"-c:a", cfg.AudioCodec,
			"-b:a", cfg.AudioBitrate,
		)
	}

	args = append(args,
		"-c:v", cfg.Codec,
		"-b:v", cfg.Bitrate,
		"-pix_fmt", "yuv420p",
	)
	if cfg.Codec == "libx264" {
		args = append(args, "-preset", "medium")
	}

	args = append(args, outPath)
	return args
}

type ffmpegSink struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	log     *bytes.Buffer
	outPath string
	closed  bool
}

func (s *ffmpegSink) Write(frame *image.RGBA) error {
	if err := writeRawRGBA(s.stdin, frame); err != nil {
		return fmt.Errorf("write raw frame error: %w", err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		// Частичный файл не оставляем — обрезанное видео хуже, чем его отсутствие.
		os.Remove(s.outPath)
		return &EncoderFailure{Output: s.log.String(), Err: err}
	}
	return nil
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	rgba := img
	if rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
