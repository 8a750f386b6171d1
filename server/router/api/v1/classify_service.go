package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/showme-app/showme/plugin/ai/classifier"
	svcerrors "github.com/showme-app/showme/server/internal/errors"
)

// ClassifyRequest is the body of POST /api/classify. The context fields
// are optional: when absent the caller's session supplies them.
type ClassifyRequest struct {
	Query               string                `json:"query"`
	ActiveTopicID       string                `json:"activeTopicId"`
	ActiveTopic         string                `json:"activeTopic"`
	ConversationHistory []classifier.Exchange `json:"conversationHistory"`
}

// ClassifyResponse reports how a query would be routed. It is a preview:
// classifying does not touch session state.
type ClassifyResponse struct {
	Classification string `json:"classification"`
	ActiveTopic    string `json:"activeTopic,omitempty"`
}

func (s *APIV1Service) handleClassify(c echo.Context) error {
	var req ClassifyRequest
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

	activeID, activeName := req.ActiveTopicID, req.ActiveTopic
	history := req.ConversationHistory
	if activeID == "" && activeName == "" {
		sess := s.Sessions.Get(sessionKey(c))
		activeID, activeName = sess.ActiveContext()
		if history == nil {
			history = sess.History()
		}
	}

	label, err := s.Classifier.Classify(c.Request().Context(), &classifier.Request{
		Query:         req.Query,
		ActiveTopicID: activeID,
		ActiveTopic:   activeName,
		History:       history,
	})
	if err != nil {
		label = classifier.LabelNewTopic
	}

	return c.JSON(http.StatusOK, ClassifyResponse{
		Classification: string(label),
		ActiveTopic:    activeName,
	})
}
