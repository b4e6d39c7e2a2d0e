package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/timeline2video/internal/clips"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/timeline"
)

const Version = "1.0.0"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Server wires the render engine into HTTP handlers. One Server may execute
// several renders at once, the engine has no shared mutable state.
type Server struct {
	Project *engine.Project
}

func NewServer(p *engine.Project) *Server {
	return &Server{Project: p}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/api/health", s.health)
	r.POST("/api/video/generate", s.generateVideo)
	r.GET("/api/video/download/:id", s.downloadVideo)
	r.GET("/api/video/effects", s.listEffects)
	r.GET("/api/video/config", s.showConfig)

	return r
}

// Run starts the server on the given port, blocking until it exits.
func (s *Server) Run(port string) error {
	fmt.Printf("[*] API сервер запускается на порту %s\n", port)
	return s.Router().Run(":" + port)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	})
}

func (s *Server) generateVideo(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	result, err := s.Project.Run(c.Request.Context(), &req)
	if err != nil {
		status, code := classify(err)
		c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
		return
	}

	// Сервисный QR рядом с файлом; в сами кадры он не попадает.
	if result.VideoPath != "" && req.Timeline != nil {
		downloadURL := fmt.Sprintf("http://%s/api/video/download/%s", c.Request.Host, engine.ShortID(req.Timeline.ID))
		if _, err := engine.WriteShareCard(result.VideoPath, downloadURL); err != nil {
			fmt.Printf("[!] QR-карточка не записана: %v\n", err)
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) downloadVideo(c *gin.Context) {
	id := c.Param("id")

	path, err := s.Project.Resolver.FindVideo(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "video_not_found",
			Message: fmt.Sprintf("no video matching %q", id),
		})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

func (s *Server) listEffects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"effects": effects.Catalog(),
	})
}

func (s *Server) showConfig(c *gin.Context) {
	cfg := s.Project.Config
	c.JSON(http.StatusOK, gin.H{
		"resolution":               cfg.Resolution(),
		"fps":                      cfg.FPS,
		"codec":                    cfg.Codec,
		"audio_codec":              cfg.AudioCodec,
		"bitrate":                  cfg.Bitrate,
		"audio_bitrate":            cfg.AudioBitrate,
		"fade_duration":            cfg.FadeDuration,
		"crossfade_duration":       cfg.CrossfadeDuration,
		"ken_burns_enabled":        cfg.KenBurnsEnabled,
		"ken_burns_zoom_factor":    cfg.KenBurnsZoomFactor,
		"pan_enabled":              cfg.PanEnabled,
		"pan_distance":             cfg.PanDistance,
		"weather_effects_enabled":  cfg.WeatherEffectsEnabled,
		"weather_effect_intensity": cfg.WeatherEffectIntensity,
		"background_music_volume":  cfg.BackgroundMusicVolume,
	})
}

// classify maps pipeline errors onto HTTP statuses: bad request for input the
// caller can fix, unprocessable for assets, everything else is internal.
func classify(err error) (int, string) {
	var verr *timeline.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, "invalid_timeline"
	}
	var eerr *effects.UnsupportedEffectError
	if errors.As(err, &eerr) {
		return http.StatusBadRequest, "unsupported_effect"
	}
	var nferr *clips.ImageNotFoundError
	if errors.As(err, &nferr) {
		return http.StatusUnprocessableEntity, "image_not_found"
	}
	var fmterr *clips.UnsupportedImageFormatError
	if errors.As(err, &fmterr) {
		return http.StatusUnprocessableEntity, "unsupported_image_format"
	}
	return http.StatusInternalServerError, "render_failed"
}
