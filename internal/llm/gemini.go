package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Config holds the Gemini connection settings.
type Config struct {
	APIKey   string
	Model    string // text model for storyboards and fixes
	TTSModel string // speech model for narration synthesis
	Voice    string // prebuilt voice name for narration
}

// DefaultConfig returns the standard model selection. The API key must
// still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Model:    "gemini-2.5-flash",
		TTSModel: "gemini-2.5-flash-preview-tts",
		Voice:    "Zephyr",
	}
}

// GeminiClient implements Client and SpeechClient against the Gemini
// API. Text completions request a JSON response type because every
// prompt in this pipeline expects structured output; the sanitizer
// still guards against the model ignoring that.
type GeminiClient struct {
	client *genai.Client
	cfg    Config
}

// NewGeminiClient dials the API.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = DefaultConfig().TTSModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultConfig().Voice
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg}, nil
}

// Complete sends one user prompt and returns the raw response text.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, nil, prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (g *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var system *genai.Content
	if systemPrompt != "" {
		system = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	return g.generate(ctx, system, userPrompt)
}

func (g *GeminiClient) generate(ctx context.Context, system *genai.Content, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		ResponseMIMEType:  "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// Speak synthesizes text into raw PCM audio with the configured voice.
func (g *GeminiClient) Speak(ctx context.Context, text string) ([]byte, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
			},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.TTSModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini speech synthesis failed: %w", err)
	}
	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini speech response carried no audio data")
}
