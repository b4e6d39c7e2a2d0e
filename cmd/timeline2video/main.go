package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ivlev/timeline2video/internal/api"
	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/resources"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
	"github.com/ivlev/timeline2video/internal/video"
)

func main() {
	// .env не обязателен, при отсутствии просто работаем с окружением
	godotenv.Load()

	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	inputPtr := flag.String("input", "", "Путь к timeline JSON (по умолчанию: самый свежий файл в <resources>/timelines/)")
	titlePtr := flag.String("title", "", "Заголовок видео (влияет только на имя файла)")
	effectPtr := flag.String("effect", "", "Погодный эффект: rain, snow, fire (пусто = без эффекта)")
	intensityPtr := flag.Float64("intensity", -1, "Интенсивность эффекта 0..1 (-1 = из конфига)")
	musicPtr := flag.String("music", "", "Фоновая музыка (имя в <resources>/music/ или путь)")
	volumePtr := flag.Float64("volume", -1, "Громкость музыки 0..1 (-1 = из конфига)")
	widthPtr := flag.Int("width", 0, "Ширина (0 = из конфига)")
	heightPtr := flag.Int("height", 0, "Высота (0 = из конфига)")
	fpsPtr := flag.Int("fps", 0, "FPS (0 = из конфига)")
	codecPtr := flag.String("codec", "auto", "Видеокодек: auto, libx264, h264_nvenc, h264_videotoolbox")
	configPtr := flag.String("config", "", "Путь к YAML конфигу")
	seedPtr := flag.Int64("seed", 0, "Seed частиц эффекта (0 = случайный)")
	servePtr := flag.Bool("serve", false, "Запустить HTTP API вместо одиночного рендера")
	portPtr := flag.String("port", "", "Порт API (по умолчанию из PORT или 8090)")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфига: %v", err)
		}
		cfg = loaded
	}

	// Флаги перекрывают конфиг
	if *widthPtr > 0 {
		cfg.Width = *widthPtr
	}
	if *heightPtr > 0 {
		cfg.Height = *heightPtr
	}
	if *fpsPtr > 0 {
		cfg.FPS = *fpsPtr
	}
	if *intensityPtr >= 0 {
		cfg.WeatherEffectIntensity = *intensityPtr
	}
	if *volumePtr >= 0 {
		cfg.BackgroundMusicVolume = *volumePtr
	}
	if *codecPtr == "auto" {
		codec, _ := system.GetBestH264Encoder()
		cfg.Codec = codec
		fmt.Printf("[*] Выбран кодек: %s\n", codec)
	} else if *codecPtr != "" {
		cfg.Codec = *codecPtr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфига: %v", err)
	}

	resolver := resources.NewResolver()
	if err := resolver.EnsureDirs(); err != nil {
		log.Fatalf("[-] Не удалось создать директории ресурсов: %v", err)
	}

	project := engine.NewProject(cfg, &video.FFmpegEncoder{}, resolver)
	project.Seed = *seedPtr

	if *servePtr {
		port := *portPtr
		if port == "" {
			port = os.Getenv("PORT")
		}
		if port == "" {
			port = "8090"
		}
		srv := api.NewServer(project)
		if err := srv.Run(port); err != nil {
			log.Fatalf("[-] Сервер остановлен: %v", err)
		}
		return
	}

	inputPath := *inputPtr
	if inputPath == "" {
		latest, err := system.FindLatestTimeline(resolver.TimelinesDir())
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите timeline JSON в %s", err, resolver.TimelinesDir())
		}
		inputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", inputPath)
	}

	tl, err := timeline.Load(inputPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения timeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := &engine.Request{
		Timeline:        tl,
		Title:           *titlePtr,
		WeatherEffect:   *effectPtr,
		BackgroundMusic: *musicPtr,
	}

	result, err := project.Run(ctx, req)
	if err != nil {
		log.Fatalf("[-] Ошибка рендера: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s (%.2fs, %d клипов)\n", result.VideoPath, result.DurationSeconds, result.ClipsCount)
}
