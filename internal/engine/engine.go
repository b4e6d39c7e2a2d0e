package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/ivlev/timeline2video/internal/clips"
	"github.com/ivlev/timeline2video/internal/compositor"
	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/resources"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
	"github.com/ivlev/timeline2video/internal/video"
)

// Request is one render order: a validated-to-be timeline plus presentation
// options. Title only affects output naming, never pixels.
type Request struct {
	Timeline        *timeline.Timeline `json:"timestamp" binding:"required"`
	Title           string             `json:"title"`
	WeatherEffect   string             `json:"weather_effect,omitempty"`
	BackgroundMusic string             `json:"background_music,omitempty"`
	UseCrossfade    bool               `json:"use_crossfade,omitempty"`
}

// Result is the output descriptor returned to the caller.
type Result struct {
	Success         bool    `json:"success"`
	VideoPath       string  `json:"video_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ClipsCount      int     `json:"clips_count"`
	Message         string  `json:"message"`
}

// Project executes render requests: один запрос — один последовательный
// конвейер (валидация -> клипы -> оверлей -> покадровая композиция -> энкодер).
// Несколько Project.Run могут идти параллельно, общего изменяемого состояния
// между рендерами нет.
type Project struct {
	Config   *config.RenderConfig
	Encoder  video.Encoder
	Resolver *resources.Resolver

	// Seed fixes the overlay particle randomness; 0 keeps every render
	// independently seeded.
	Seed int64
}

func NewProject(cfg *config.RenderConfig, enc video.Encoder, res *resources.Resolver) *Project {
	return &Project{
		Config:   cfg,
		Encoder:  enc,
		Resolver: res,
	}
}

// Run renders one request. Fatal errors (validation, image loading, unknown
// effect, encoder) abort the pipeline with no partial file left on disk; an
// unreadable background music track degrades to a silent render with the
// warning carried in the result message.
func (p *Project) Run(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	title := req.Title
	if title == "" {
		title = "video"
	}

	tl := req.Timeline
	if tl == nil {
		return nil, &timeline.ValidationError{Index: -1, Reason: "no timeline", Expected: 1, Actual: 0}
	}
	if tl.ID == "" {
		tl.ID = uuid.NewString()
	}

	if err := tl.Validate(); err != nil {
		return nil, err
	}

	fmt.Println("--- [RENDER PIPELINE] ---")
	fmt.Printf("[*] Заголовок: %s | Сцен: %d | Длительность: %.2fs\n", title, len(tl.Entries), tl.TotalDurationSeconds())
	fmt.Printf("[*] Разрешение: %s @ %d FPS\n", p.Config.Resolution(), p.Config.FPS)
	fmt.Println("-------------------------")

	// Разрешаем логические имена изображений в локальной копии: исходный
	// запрос не меняется, повторный Run получает те же относительные пути.
	resolved := *tl
	resolved.Entries = append([]timeline.Entry(nil), tl.Entries...)
	for i := range resolved.Entries {
		resolved.Entries[i].ImagePath = p.Resolver.ResolveImage(resolved.Entries[i].ImagePath)
	}

	sequence, err := clips.Build(ctx, &resolved, p.Config.Width, p.Config.Height)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[*] Клипы собраны: %d\n", len(sequence))

	var overlay *effects.Overlay
	if req.WeatherEffect != "" && p.Config.WeatherEffectsEnabled {
		kind, err := effects.ParseKind(req.WeatherEffect)
		if err != nil {
			return nil, err
		}
		overlay, err = effects.NewOverlay(
			kind,
			tl.TotalDurationSeconds(),
			p.Config.FPS,
			p.Config.Width, p.Config.Height,
			p.Config.WeatherEffectIntensity,
			p.Seed,
		)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] Эффект %s: %d частиц, %d кадров\n", kind, overlay.PopulationSize(), overlay.FrameCount())
	}

	if req.UseCrossfade {
		// Переходы зарезервированы в конфиге, но в этой версии не рендерятся.
		log.Printf("[!] Запрошен crossfade, переходы пока отключены — клипы склеены встык")
	}

	var warning string
	var audio *video.AudioOptions
	if req.BackgroundMusic != "" {
		musicPath := p.Resolver.ResolveMusic(req.BackgroundMusic)
		if _, err := system.GetAudioDuration(musicPath); err != nil {
			log.Printf("[!] Не удалось загрузить музыку %s: %v — рендерим без звука", musicPath, err)
			warning = fmt.Sprintf(" (warning: background music %s could not be loaded, video has no audio)", req.BackgroundMusic)
		} else {
			audio = &video.AudioOptions{Path: musicPath, Volume: p.Config.BackgroundMusicVolume}
		}
	}

	outPath := p.OutputPath(title, tl.ID)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("создание папки вывода: %w", err)
	}

	sink, err := p.Encoder.Begin(ctx, outPath, p.Config, audio)
	if err != nil {
		return nil, err
	}

	frames, renderErr := compositor.Render(ctx, sequence, overlay, sink, p.Config.FPS)
	if renderErr != nil {
		sink.Close()
		os.Remove(outPath)
		return nil, renderErr
	}

	if err := sink.Close(); err != nil {
		return nil, err
	}

	fmt.Printf("[+++] Успех! Кадров: %d | Время: %.2fs | Файл: %s\n", frames, time.Since(start).Seconds(), outPath)

	return &Result{
		Success:         true,
		VideoPath:       outPath,
		DurationSeconds: tl.TotalDurationSeconds(),
		ClipsCount:      len(sequence),
		Message:         "video generated successfully" + warning,
	}, nil
}

// OutputPath builds <videos>/<slug>/<slug>_<id8>.mp4.
func (p *Project) OutputPath(title, id string) string {
	slug := Slugify(title)
	return filepath.Join(p.Resolver.VideosDir(), slug, fmt.Sprintf("%s_%s.mp4", slug, ShortID(id)))
}

// ShortID returns the id fragment embedded in output file names. Download
// links must use the same fragment, the full uuid never appears on disk.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Slugify приводит заголовок к безопасному имени файла.
func Slugify(title string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return "video"
	}
	return slug
}

// WriteShareCard сохраняет рядом с видео PNG с QR-кодом на ссылку скачивания.
// Это чисто сервисный артефакт: в кадры видео QR никогда не попадает.
func WriteShareCard(videoPath, downloadURL string) (string, error) {
	out := strings.TrimSuffix(videoPath, ".mp4") + "_qr.png"
	if err := qrcode.WriteFile(downloadURL, qrcode.Medium, 256, out); err != nil {
		return "", err
	}
	return out, nil
}
