package generator

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/showme-app/showme/plugin/ai"
	svcerrors "github.com/showme-app/showme/server/internal/errors"
	"github.com/showme-app/showme/server/session"
)

// Plausibility floors for generated media. Payloads must strictly exceed
// them; anything at or below is treated as a failed generation, not as
// content.
const (
	minImageBytes = 1024
	minAudioBytes = 5 * 1024
)

// ImageGenerator renders one image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// SpeechSynthesizer narrates text as audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (*ai.Speech, error)
}

// SlideGenerator turns one script fragment into a complete slide.
type SlideGenerator struct {
	images ImageGenerator
	speech SpeechSynthesizer
}

// NewSlideGenerator creates a slide generator.
func NewSlideGenerator(images ImageGenerator, speech SpeechSynthesizer) *SlideGenerator {
	return &SlideGenerator{images: images, speech: speech}
}

// Generate renders the image and narration for a fragment concurrently and
// assembles the slide. The subtitle is the fragment verbatim and the
// duration comes from the synthesized audio.
func (g *SlideGenerator) Generate(ctx context.Context, topicName, fragment string) (*session.Slide, error) {
	var (
		imageData []byte
		speech    *ai.Speech
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		data, err := g.images.GenerateImage(egCtx, imagePrompt(topicName, fragment))
		if err != nil {
			return svcerrors.SlideGenerationFailed("image generation failed", err)
		}
		if len(data) <= minImageBytes {
			return svcerrors.SlideGenerationFailed(
				fmt.Sprintf("implausible image: %d bytes", len(data)), nil)
		}
		imageData = data
		return nil
	})
	eg.Go(func() error {
		s, err := g.speech.Synthesize(egCtx, fragment)
		if err != nil {
			return svcerrors.SlideGenerationFailed("speech synthesis failed", err)
		}
		if len(s.Data) <= minAudioBytes {
			return svcerrors.SlideGenerationFailed(
				fmt.Sprintf("implausible audio: %d bytes", len(s.Data)), nil)
		}
		speech = s
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &session.Slide{
		ID:       "slide_" + shortuuid.New(),
		ImageURL: dataURI("image/png", imageData),
		AudioURL: dataURI("audio/wav", speech.Data),
		Subtitle: fragment,
		Duration: speech.Duration,
	}, nil
}

func imagePrompt(topicName, fragment string) string {
	return fmt.Sprintf(
		"A clear, friendly illustration for an educational slide about %s. "+
			"The slide narrates: %q. No text in the image.",
		topicName, fragment)
}

func dataURI(mime string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}
