package profile

import (
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	p := &Profile{Port: 3001}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"Mode default", "dev", p.Mode},
		{"FrontendOrigin default", "http://localhost:5173", p.FrontendOrigin},
		{"AIBaseURL default", "https://api.openai.com/v1", p.AIBaseURL},
		{"AIChatModel default", "gpt-4o-mini", p.AIChatModel},
		{"AIImageModel default", "dall-e-3", p.AIImageModel},
		{"AISpeechModel default", "tts-1", p.AISpeechModel},
		{"AISpeechVoice default", "nova", p.AISpeechVoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.actual)
			}
		})
	}

	if p.RateLimitPerMinute != 10 {
		t.Errorf("RateLimitPerMinute = %d, want 10", p.RateLimitPerMinute)
	}
	if p.RateLimitBurst != 5 {
		t.Errorf("RateLimitBurst = %d, want 5", p.RateLimitBurst)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
	}{
		{"zero port", Profile{Port: 0}},
		{"negative port", Profile{Port: -1}},
		{"port out of range", Profile{Port: 70000}},
		{"origin without scheme", Profile{Port: 3001, FrontendOrigin: "localhost:5173"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.profile.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestValidateNormalizesOrigin(t *testing.T) {
	p := &Profile{Port: 3001, FrontendOrigin: "https://app.example.com/"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.FrontendOrigin != "https://app.example.com" {
		t.Errorf("FrontendOrigin = %q, want trailing slash stripped", p.FrontendOrigin)
	}
}

func TestIsAIEnabled(t *testing.T) {
	p := &Profile{}
	if p.IsAIEnabled() {
		t.Error("IsAIEnabled() should be false without an API key")
	}
	p.AIAPIKey = "test-key"
	if !p.IsAIEnabled() {
		t.Error("IsAIEnabled() should be true with an API key")
	}
}
