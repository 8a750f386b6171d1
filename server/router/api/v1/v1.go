// Package v1 exposes the JSON and WebSocket API.
package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/showme-app/showme/internal/profile"
	"github.com/showme-app/showme/plugin/ai/classifier"
	"github.com/showme-app/showme/plugin/ai/engagement"
	"github.com/showme-app/showme/server/generator"
	"github.com/showme-app/showme/server/middleware"
	"github.com/showme-app/showme/server/session"
)

// sessionHeader carries the client's session key. Clients without one are
// keyed by IP.
const sessionHeader = "X-Session-ID"

// maxQueryLen bounds accepted query length in bytes.
const maxQueryLen = 500

// GenerationPipeline runs one query through classification, planning and
// slide generation.
type GenerationPipeline interface {
	Run(ctx context.Context, req *generator.Request) (*generator.Result, error)
}

// EngagementGenerator produces the fun fact and suggested questions.
type EngagementGenerator interface {
	Generate(ctx context.Context, query string) (*engagement.Engagement, error)
}

// APIV1Service wires the API routes to the generation services.
type APIV1Service struct {
	Profile    *profile.Profile
	Sessions   *session.Registry
	Pipeline   GenerationPipeline
	Classifier classifier.Classifier
	Engagement EngagementGenerator
	Broker     *generator.Broker

	limiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(
	p *profile.Profile,
	sessions *session.Registry,
	pipeline GenerationPipeline,
	c classifier.Classifier,
	eng EngagementGenerator,
	broker *generator.Broker,
) *APIV1Service {
	return &APIV1Service{
		Profile:    p,
		Sessions:   sessions,
		Pipeline:   pipeline,
		Classifier: c,
		Engagement: eng,
		Broker:     broker,
		limiter:    middleware.NewRateLimiter(p.RateLimitPerMinute, p.RateLimitBurst),
	}
}

// RegisterRoutes attaches the API routes to the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.handleHealthz)
	e.GET("/ws/generation", s.handleGenerationWS)

	api := e.Group("/api", s.limiter.Middleware(sessionKey))
	api.POST("/generate", s.handleGenerate)
	api.POST("/classify", s.handleClassify)
	api.POST("/generate/engagement", s.handleEngagement)
}

func (s *APIV1Service) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

// sessionKey identifies the client for session state and rate limiting.
func sessionKey(c echo.Context) string {
	if id := c.Request().Header.Get(sessionHeader); id != "" {
		return id
	}
	return c.RealIP()
}

// normalizeQuery trims the query and reports whether it is acceptable.
func normalizeQuery(q string) (string, bool) {
	q = strings.TrimSpace(q)
	return q, q != "" && len(q) <= maxQueryLen
}
