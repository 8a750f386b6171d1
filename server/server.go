// Package server assembles the HTTP server: routes, middleware, and the
// generation services behind them.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/showme-app/showme/internal/profile"
	"github.com/showme-app/showme/plugin/ai"
	"github.com/showme-app/showme/plugin/ai/classifier"
	"github.com/showme-app/showme/plugin/ai/engagement"
	"github.com/showme-app/showme/server/generator"
	apiv1 "github.com/showme-app/showme/server/router/api/v1"
	"github.com/showme-app/showme/server/session"
)

const (
	sessionCapacity = 10000
	sessionIdleTTL  = 30 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// Server is the showme HTTP server.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	sessions   *session.Registry

	stopCleanup chan struct{}
}

// NewServer creates a fully wired server for the profile.
func NewServer(_ context.Context, p *profile.Profile) (*Server, error) {
	provider, err := ai.NewProvider(&ai.Config{
		BaseURL:     p.AIBaseURL,
		APIKey:      p.AIAPIKey,
		ChatModel:   p.AIChatModel,
		ImageModel:  p.AIImageModel,
		SpeechModel: p.AISpeechModel,
		SpeechVoice: p.AISpeechVoice,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AI provider")
	}
	if err := provider.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{p.FrontendOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, "X-Session-ID"},
	}))

	sessions := session.NewRegistry(sessionCapacity, sessionIdleTTL)
	broker := generator.NewBroker()
	queryClassifier := classifier.NewLLMClassifier(provider.Client(), p.AIChatModel)
	pipeline := generator.NewPipeline(
		queryClassifier,
		provider,
		generator.NewSlideGenerator(provider, provider),
		broker,
	)

	apiService := apiv1.NewAPIV1Service(p, sessions, pipeline,
		queryClassifier,
		engagement.NewGenerator(provider.Client(), p.AIChatModel),
		broker)
	apiService.RegisterRoutes(e)

	return &Server{
		Profile:     p,
		echoServer:  e,
		sessions:    sessions,
		stopCleanup: make(chan struct{}),
	}, nil
}

// Start runs the server until Shutdown is called. It blocks.
func (s *Server) Start(_ context.Context) error {
	go s.cleanupLoop()

	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopCleanup)
	return s.echoServer.Shutdown(ctx)
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sessions.CleanupExpired()
		case <-s.stopCleanup:
			return
		}
	}
}
