// Package classifier decides whether a query continues the active
// conversation topic or opens a new one.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/showme-app/showme/plugin/ai"
)

// Label is the classification outcome. It is always one of the two values
// below; there is no error label.
type Label string

const (
	// LabelFollowUp marks a query that continues the active topic.
	LabelFollowUp Label = "follow_up"
	// LabelNewTopic marks a query unrelated to the active topic.
	LabelNewTopic Label = "new_topic"
)

// Exchange is one prior query with its classification, used as context.
type Exchange struct {
	Query          string `json:"query"`
	Classification string `json:"classification"`
	Timestamp      int64  `json:"timestamp"`
}

// Request carries the query and the active-topic context to judge against.
type Request struct {
	Query         string
	ActiveTopicID string
	ActiveTopic   string
	History       []Exchange
}

// Classifier judges a query against the active topic. Implementations must
// always return one of the two labels and default to LabelNewTopic when no
// active context exists or the judgment fails.
type Classifier interface {
	Classify(ctx context.Context, req *Request) (Label, error)
}

// completionAPI is the slice of the OpenAI client the classifier needs.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMClassifier uses a lightweight LLM judgment with a rule-based fallback.
type LLMClassifier struct {
	client  completionAPI
	model   string
	timeout time.Duration

	// Fallback rule-based classifier for when the LLM fails
	fallback *RuleClassifier
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(client *openai.Client, model string) *LLMClassifier {
	return &LLMClassifier{
		client:   client,
		model:    model,
		timeout:  10 * time.Second,
		fallback: NewRuleClassifier(),
	}
}

// Classify determines whether the query continues the active topic.
// It never returns an error label: judgment failures fall back to the
// rule-based classifier, and a missing active context is always a new topic.
func (c *LLMClassifier) Classify(ctx context.Context, req *Request) (Label, error) {
	if req.ActiveTopic == "" && req.ActiveTopicID == "" {
		return LabelNewTopic, nil
	}

	label, err := c.classifyLLM(ctx, req)
	if err != nil {
		slog.Warn("LLM classification failed, using rule fallback",
			"error", err,
			"active_topic", req.ActiveTopic)
		return c.fallback.Classify(req), nil
	}
	return label, nil
}

func (c *LLMClassifier) classifyLLM(ctx context.Context, req *Request) (Label, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   50,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: classifySystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "topic_classification",
				Strict: true,
				Schema: classificationSchema,
			},
		},
	})
	latency := time.Since(start)
	if err != nil {
		return LabelNewTopic, fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LabelNewTopic, fmt.Errorf("empty response from LLM")
	}

	label, confidence, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return LabelNewTopic, fmt.Errorf("parse response failed: %w", err)
	}

	slog.Debug("LLM classification completed",
		"label", label,
		"confidence", confidence,
		"latency_ms", latency.Milliseconds())

	return label, nil
}

func buildPrompt(req *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active topic: %s\n", req.ActiveTopic)
	if n := len(req.History); n > 0 {
		b.WriteString("Recent questions:\n")
		// Last three exchanges are enough context for the judgment.
		for _, e := range req.History[max(0, n-3):] {
			fmt.Fprintf(&b, "- %s\n", e.Query)
		}
	}
	fmt.Fprintf(&b, "New question: %s", req.Query)
	return b.String()
}

// parseResponse parses the LLM JSON response.
func parseResponse(content string) (Label, float64, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var raw struct {
		Classification string  `json:"classification"`
		Confidence     float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return LabelNewTopic, 0, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(raw.Classification)) {
	case string(LabelFollowUp):
		return LabelFollowUp, raw.Confidence, nil
	case string(LabelNewTopic):
		return LabelNewTopic, raw.Confidence, nil
	default:
		return LabelNewTopic, 0, fmt.Errorf("unknown classification %q", raw.Classification)
	}
}

const classifySystemPrompt = `You classify whether a new question continues the
active conversation topic or starts an unrelated one.

follow_up: the question asks for more detail about the active topic, refers
back to it, or depends on its answer.
new_topic: the question is about a different subject.

When in doubt, answer new_topic.`

// classificationSchema constrains the output to the two labels.
var classificationSchema = &ai.JSONSchema{
	Type: "object",
	Properties: map[string]*ai.JSONSchema{
		"classification": {
			Type:        "string",
			Enum:        []string{string(LabelFollowUp), string(LabelNewTopic)},
			Description: "The classification label",
		},
		"confidence": {
			Type:        "number",
			Description: "Confidence score between 0 and 1",
		},
	},
	Required:             []string{"classification", "confidence"},
	AdditionalProperties: false,
}
