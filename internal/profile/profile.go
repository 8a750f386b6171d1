package profile

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Version is the current version of the server
	Version string
	// FrontendOrigin is the only origin allowed by CORS
	FrontendOrigin string

	// AI provider configuration
	AIBaseURL     string // SHOWME_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey      string // SHOWME_AI_API_KEY
	AIChatModel   string // SHOWME_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIImageModel  string // SHOWME_AI_IMAGE_MODEL (default: dall-e-3)
	AISpeechModel string // SHOWME_AI_SPEECH_MODEL (default: tts-1)
	AISpeechVoice string // SHOWME_AI_SPEECH_VOICE (default: nova)

	// Rate limiting
	RateLimitPerMinute int // SHOWME_RATE_LIMIT_PER_MINUTE (default: 10)
	RateLimitBurst     int // SHOWME_RATE_LIMIT_BURST (default: 5)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an AI API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// Validate normalizes the profile and rejects unusable values.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.FrontendOrigin == "" {
		p.FrontendOrigin = "http://localhost:5173"
	}
	p.FrontendOrigin = strings.TrimRight(p.FrontendOrigin, "/")
	if u, err := url.Parse(p.FrontendOrigin); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid frontend origin %q", p.FrontendOrigin)
	}

	if p.AIBaseURL == "" {
		p.AIBaseURL = "https://api.openai.com/v1"
	}
	if p.AIChatModel == "" {
		p.AIChatModel = "gpt-4o-mini"
	}
	if p.AIImageModel == "" {
		p.AIImageModel = "dall-e-3"
	}
	if p.AISpeechModel == "" {
		p.AISpeechModel = "tts-1"
	}
	if p.AISpeechVoice == "" {
		p.AISpeechVoice = "nova"
	}

	if p.RateLimitPerMinute <= 0 {
		p.RateLimitPerMinute = 10
	}
	if p.RateLimitBurst <= 0 {
		p.RateLimitBurst = 5
	}

	return nil
}
