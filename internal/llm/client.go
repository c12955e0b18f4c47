// Package llm wraps the generative model behind small interfaces so the
// pipeline and its tests never depend on a live API.
package llm

import "context"

// Client is the text-completion surface the pipeline consumes.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SpeechClient synthesizes narration audio. The returned bytes are raw
// PCM frames at the sample rate the audio package expects.
type SpeechClient interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}
