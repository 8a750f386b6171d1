package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TopicPlan is the planned narration for one generation run.
type TopicPlan struct {
	// Name is a short display name for the topic.
	Name string `json:"topicName"`
	// Icon is a single emoji representing the topic.
	Icon string `json:"icon"`
	// Fragments are the narration scripts, one per slide, in narrative order.
	Fragments []string `json:"fragments"`
}

const plannerSystemPrompt = `You are a script planner for a voice-first educational app.
Given a question, produce a short topic name, a single emoji icon, and 3 to 5
narration fragments. Each fragment is one or two spoken sentences explaining a
step of the answer, suitable for narration over a single illustrated slide.
Fragments must follow a narrative order and must mention the question's subject.`

var topicPlanSchema = &JSONSchema{
	Type: "object",
	Properties: map[string]*JSONSchema{
		"topicName": {
			Type:        "string",
			Description: "Short display name for the topic, at most four words",
		},
		"icon": {
			Type:        "string",
			Description: "A single emoji representing the topic",
		},
		"fragments": {
			Type:        "array",
			Items:       &JSONSchema{Type: "string"},
			MinItems:    3,
			MaxItems:    5,
			Description: "Narration fragments in narrative order",
		},
	},
	Required:             []string{"topicName", "icon", "fragments"},
	AdditionalProperties: false,
}

// PlanTopic derives the slide scripts for a query. When activeTopic is
// nonempty the plan continues that topic's narrative instead of starting over.
func (p *Provider) PlanTopic(ctx context.Context, query, activeTopic string) (*TopicPlan, error) {
	prompt := fmt.Sprintf("Question: %s", query)
	if activeTopic != "" {
		prompt = fmt.Sprintf("Active topic: %s\nFollow-up question: %s\nContinue the topic's narrative.", activeTopic, query)
	}

	content, err := p.ChatJSON(ctx, []Message{
		SystemMessage(plannerSystemPrompt),
		UserMessage(prompt),
	}, "topic_plan", topicPlanSchema)
	if err != nil {
		return nil, err
	}

	plan, err := parseTopicPlan(content)
	if err != nil {
		return nil, fmt.Errorf("parse topic plan: %w", err)
	}
	return plan, nil
}

func parseTopicPlan(content string) (*TopicPlan, error) {
	var plan TopicPlan
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &plan); err != nil {
		return nil, err
	}

	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		return nil, fmt.Errorf("empty topic name")
	}
	if plan.Icon == "" {
		plan.Icon = "💡"
	}

	fragments := make([]string, 0, len(plan.Fragments))
	for _, f := range plan.Fragments {
		if f = strings.TrimSpace(f); f != "" {
			fragments = append(fragments, f)
		}
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("no narration fragments")
	}
	plan.Fragments = fragments
	return &plan, nil
}

// stripCodeFence unwraps a ```json fenced block if the model added one.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
