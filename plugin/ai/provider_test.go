package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavDuration(t *testing.T) {
	tests := []struct {
		name string
		size int
		want float64
	}{
		{"empty", 0, 0},
		{"headerOnly", wavHeaderSize, 0},
		{"oneSecond", wavHeaderSize + wavBytesPerSecond, 1.0},
		{"halfSecond", wavHeaderSize + wavBytesPerSecond/2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WavDuration(make([]byte, tt.size))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseTopicPlan(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid",
			content: `{"topicName":"Black Holes","icon":"🕳️","fragments":["A black hole forms when a star collapses.","Its gravity is so strong light cannot escape."]}`,
		},
		{
			name:    "fencedJSON",
			content: "```json\n{\"topicName\":\"WiFi\",\"icon\":\"📶\",\"fragments\":[\"WiFi carries data over radio waves.\"]}\n```",
		},
		{
			name:    "emptyName",
			content: `{"topicName":"  ","icon":"💡","fragments":["something"]}`,
			wantErr: true,
		},
		{
			name:    "noFragments",
			content: `{"topicName":"Dreams","icon":"💭","fragments":["", "  "]}`,
			wantErr: true,
		},
		{
			name:    "notJSON",
			content: "I cannot answer that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := parseTopicPlan(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, plan.Name)
			assert.NotEmpty(t, plan.Icon)
			assert.NotEmpty(t, plan.Fragments)
		})
	}
}

func TestParseTopicPlanDropsBlankFragments(t *testing.T) {
	plan, err := parseTopicPlan(`{"topicName":"Volcanoes","icon":"🌋","fragments":["Magma rises."," ","Pressure builds."]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Magma rises.", "Pressure builds."}, plan.Fragments)
}

func TestParseTopicPlanDefaultsIcon(t *testing.T) {
	plan, err := parseTopicPlan(`{"topicName":"Gravity","icon":"","fragments":["Mass bends spacetime."]}`)
	require.NoError(t, err)
	assert.Equal(t, "💡", plan.Icon)
}

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(&Config{APIKey: "test"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.config.ChatModel)
	assert.Equal(t, "dall-e-3", p.config.ImageModel)
	assert.Equal(t, "tts-1", p.config.SpeechModel)
	assert.Equal(t, "nova", p.config.SpeechVoice)
	assert.Equal(t, 3, p.config.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestValidateRequiresAPIKey(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)
	assert.Error(t, p.Validate())
}
