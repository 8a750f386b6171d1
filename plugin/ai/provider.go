package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds the AI provider configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	ChatModel   string
	ImageModel  string
	SpeechModel string
	SpeechVoice string
	MaxRetries  int
	Timeout     time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		APIKey:      "",
		ChatModel:   "gpt-4o-mini",
		ImageModel:  "dall-e-3",
		SpeechModel: "tts-1",
		SpeechVoice: "nova",
		MaxRetries:  3,
		Timeout:     30 * time.Second,
	}
}

// Speech is the result of a text-to-speech synthesis.
type Speech struct {
	// Data holds the encoded audio bytes.
	Data []byte
	// Duration is the narrated length in seconds, derived from the audio data.
	Duration float64
	// Format is the audio container format ("wav").
	Format string
}

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// Provider provides AI capabilities: chat completion, image generation
// and speech synthesis through an OpenAI-compatible API.
type Provider struct {
	client *openai.Client
	config *Config
}

// NewProvider creates a new AI provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Apply defaults for unset values
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "dall-e-3"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "tts-1"
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = "nova"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	// Each capability call gets its own deadline; a stuck provider fails
	// the attempt instead of stalling the pipeline.
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Client exposes the underlying OpenAI client for services that issue
// their own completions.
func (p *Provider) Client() *openai.Client {
	return p.client
}

// Chat performs a chat completion.
func (p *Provider) Chat(ctx context.Context, messages []Message) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    p.config.ChatModel,
			Messages: toChatMessages(messages),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	return result, nil
}

// ChatJSON performs a chat completion constrained to a strict JSON schema.
// Temperature is pinned to zero so repeated judgments stay deterministic.
func (p *Provider) ChatJSON(ctx context.Context, messages []Message, schemaName string, schema json.Marshaler) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       p.config.ChatModel,
			Messages:    toChatMessages(messages),
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   schemaName,
					Strict: true,
					Schema: schema,
				},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete structured chat: %w", err)
	}
	return result, nil
}

// GenerateImage generates one image for the given prompt and returns the raw bytes.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var result []byte
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          p.config.ImageModel,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty image response")
		}
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return fmt.Errorf("decode image payload: %w", err)
		}
		result = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	return result, nil
}

// tts-1 WAV output is 24 kHz 16-bit mono PCM.
const (
	wavHeaderSize     = 44
	wavBytesPerSecond = 24000 * 2
)

// Synthesize converts text to speech audio. Duration is computed from the
// PCM sample count of the returned WAV, not estimated from the text.
func (p *Provider) Synthesize(ctx context.Context, text string) (*Speech, error) {
	var result *Speech
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(p.config.SpeechModel),
			Input:          text,
			Voice:          openai.SpeechVoice(p.config.SpeechVoice),
			ResponseFormat: openai.SpeechResponseFormatWav,
		})
		if err != nil {
			return err
		}
		defer resp.Close()

		data, err := io.ReadAll(resp)
		if err != nil {
			return fmt.Errorf("read speech payload: %w", err)
		}
		if len(data) <= wavHeaderSize {
			return fmt.Errorf("speech payload too small: %d bytes", len(data))
		}
		result = &Speech{
			Data:     data,
			Duration: WavDuration(data),
			Format:   "wav",
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	return result, nil
}

// WavDuration returns the play length in seconds of a 24 kHz 16-bit mono WAV.
func WavDuration(data []byte) float64 {
	if len(data) <= wavHeaderSize {
		return 0
	}
	return float64(len(data)-wavHeaderSize) / wavBytesPerSecond
}

// Validate validates the provider configuration.
func (p *Provider) Validate() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("API key is required, set SHOWME_AI_API_KEY environment variable")
	}
	return nil
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("AI request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

func toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}
