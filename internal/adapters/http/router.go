// Package http wires the REST surface and the websocket signaling
// endpoint into one gin engine.
package http

import (
	"github.com/avelose/scraplink/internal/adapters/signal"
	"github.com/avelose/scraplink/internal/config"
	"github.com/avelose/scraplink/internal/core"
	"github.com/avelose/scraplink/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Signal      *signal.Controller
	Profiles    core.ProfileStore
	Transcripts core.TranscriptStore
}

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := &Handlers{Profiles: deps.Profiles, Transcripts: deps.Transcripts, Secret: cfg.Secret}

	api := r.Group("/api")

	api.POST("/auth/login", h.Login)

	api.GET("/profiles/:userId", h.GetProfile)
	api.PUT("/profiles/:userId", middleware.JWTAuth(cfg.Secret), h.UpdateProfile)

	api.GET("/transcripts/:peerId", middleware.JWTAuth(cfg.Secret), h.QueryTranscript)
	api.POST("/transcripts", middleware.JWTAuth(cfg.Secret), h.AppendTranscript)

	api.GET("/ws/signal", deps.Signal.HandleSignal)

	return r
}
