// Package engagement produces the supplementary fun fact and suggested
// follow-up questions shown alongside a generated topic.
package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/showme-app/showme/plugin/ai"
)

// SuggestedQuestionCount is the exact number of follow-up suggestions returned.
const SuggestedQuestionCount = 3

// Engagement is the supplementary content for one topic.
type Engagement struct {
	FunFact            string
	SuggestedQuestions []string
}

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces engagement content through an LLM.
type Generator struct {
	client  completionAPI
	model   string
	timeout time.Duration
}

// NewGenerator creates an engagement generator.
func NewGenerator(client *openai.Client, model string) *Generator {
	return &Generator{
		client:  client,
		model:   model,
		timeout: 15 * time.Second,
	}
}

// Generate returns a fun fact and exactly three distinct suggested questions
// for the query's topic. Callers treat any error as non-fatal.
func (g *Generator) Generate(ctx context.Context, query string) (*Engagement, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: 300,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: engagementSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Question: %s", query),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "engagement_content",
				Strict: true,
				Schema: engagementSchema,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("engagement request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty engagement response")
	}

	result, err := parseEngagement(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parse engagement response: %w", err)
	}
	return result, nil
}

func parseEngagement(content string) (*Engagement, error) {
	var raw struct {
		FunFact            string   `json:"funFact"`
		SuggestedQuestions []string `json:"suggestedQuestions"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, err
	}

	raw.FunFact = strings.TrimSpace(raw.FunFact)
	if raw.FunFact == "" {
		return nil, fmt.Errorf("empty fun fact")
	}

	questions := dedupeQuestions(raw.SuggestedQuestions)
	if len(questions) < SuggestedQuestionCount {
		return nil, fmt.Errorf("expected %d distinct suggested questions, got %d",
			SuggestedQuestionCount, len(questions))
	}

	return &Engagement{
		FunFact:            raw.FunFact,
		SuggestedQuestions: questions[:SuggestedQuestionCount],
	}, nil
}

// dedupeQuestions drops blank and duplicate suggestions, preserving order.
// Comparison ignores case and surrounding whitespace.
func dedupeQuestions(questions []string) []string {
	seen := make(map[string]struct{}, len(questions))
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}

const engagementSystemPrompt = `You write supplementary content for an
educational answer. Given a question, produce one surprising fun fact about
the question's subject and exactly three distinct follow-up questions a
curious learner might ask next. All content must stay on the question's
subject.`

var engagementSchema = &ai.JSONSchema{
	Type: "object",
	Properties: map[string]*ai.JSONSchema{
		"funFact": {
			Type:        "string",
			Description: "One surprising fact about the subject",
		},
		"suggestedQuestions": {
			Type:        "array",
			Items:       &ai.JSONSchema{Type: "string"},
			MinItems:    SuggestedQuestionCount,
			MaxItems:    SuggestedQuestionCount,
			Description: "Three distinct follow-up questions",
		},
	},
	Required:             []string{"funFact", "suggestedQuestions"},
	AdditionalProperties: false,
}
