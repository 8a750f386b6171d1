package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	svcerrors "github.com/showme-app/showme/server/internal/errors"
)

// EngagementRequest is the body of POST /api/generate/engagement.
type EngagementRequest struct {
	Query string `json:"query"`
}

// FunFactView wraps the fun fact text.
type FunFactView struct {
	Text string `json:"text"`
}

// EngagementResponse carries the standalone engagement content.
type EngagementResponse struct {
	FunFact            FunFactView `json:"funFact"`
	SuggestedQuestions []string    `json:"suggestedQuestions"`
}

func (s *APIV1Service) handleEngagement(c echo.Context) error {
	var req EngagementRequest
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
	if s.Engagement == nil {
		return errorJSON(c, http.StatusBadGateway, svcerrors.ErrCodeEngagementFailed,
			"engagement generation is unavailable")
	}

	eng, err := s.Engagement.Generate(c.Request().Context(), req.Query)
	if err != nil {
		return errorJSON(c, http.StatusBadGateway, svcerrors.ErrCodeEngagementFailed,
			"engagement generation failed, please try again")
	}

	return c.JSON(http.StatusOK, EngagementResponse{
		FunFact:            FunFactView{Text: eng.FunFact},
		SuggestedQuestions: eng.SuggestedQuestions,
	})
}
