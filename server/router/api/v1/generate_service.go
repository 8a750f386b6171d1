package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/showme-app/showme/plugin/ai/engagement"
	"github.com/showme-app/showme/server/generator"
	svcerrors "github.com/showme-app/showme/server/internal/errors"
	"github.com/showme-app/showme/server/internal/observability"
	"github.com/showme-app/showme/server/session"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Query string `json:"query"`
}

// TopicView is the topic summary returned with a generated segment.
type TopicView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	Topic              TopicView       `json:"topic"`
	Slides             []session.Slide `json:"slides"`
	SegmentID          string          `json:"segmentId"`
	Classification     string          `json:"classification"`
	FunFact            string          `json:"funFact,omitempty"`
	SuggestedQuestions []string        `json:"suggestedQuestions,omitempty"`
	OmittedFragments   []string        `json:"omittedFragments,omitempty"`
}

func (s *APIV1Service) handleGenerate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, svcerrors.ErrCodeInvalidQuery,
			"request body must be JSON with a query field")
	}
	query, ok := normalizeQuery(req.Query)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, svcerrors.ErrCodeInvalidQuery,
			"query must be nonempty and at most 500 characters")
	}
	req.Query = query

	key := sessionKey(c)
	sess := s.Sessions.Get(key)

	reqCtx := observability.NewRequestContext(slog.Default(), key)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
	reqCtx.Info("generation request received")

	// Engagement rides alongside the pipeline; its failure never fails
	// the request.
	engCh := make(chan *engagement.Engagement, 1)
	go func() {
		defer close(engCh)
		if s.Engagement == nil {
			return
		}
		eng, err := s.Engagement.Generate(ctx, req.Query)
		if err != nil {
			reqCtx.Warn("engagement generation failed",
				slog.String("error", err.Error()))
			return
		}
		engCh <- eng
	}()

	result, err := s.Pipeline.Run(ctx, &generator.Request{
		Query:      req.Query,
		SessionKey: key,
		Session:    sess,
	})
	if err != nil {
		reqCtx.Error("generation pipeline failed", err,
			slog.String(observability.LogFieldErrorCode,
				string(svcerrors.GetCodeFromError(err, svcerrors.ErrCodePipelineFailed))),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return errorJSON(c, http.StatusBadGateway, svcerrors.ErrCodePipelineFailed,
			"generation failed, please try again")
	}

	resp := GenerateResponse{
		Topic: TopicView{
			ID:   result.Topic.ID,
			Name: result.Topic.Name,
			Icon: result.Topic.Icon,
		},
		Slides:           result.Slides,
		SegmentID:        result.SegmentID,
		Classification:   string(result.Classification),
		OmittedFragments: result.OmittedFragments,
	}
	if eng := <-engCh; eng != nil {
		resp.FunFact = eng.FunFact
		resp.SuggestedQuestions = eng.SuggestedQuestions
	}

	reqCtx.Info("generation request completed",
		slog.Int(observability.LogFieldSlidesReady, len(resp.Slides)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, resp)
}

// errorJSON writes the uniform error body. Messages are generic: upstream
// detail and client input never appear in them.
func errorJSON(c echo.Context, status int, code svcerrors.ErrorCode, msg string) error {
	return c.JSON(status, map[string]string{
		"error": msg,
		"code":  string(code),
	})
}
