// Package assistant wraps the text-generation service for the three CV helper
// actions: importing a CV from extracted PDF text, optimizing a CV against a
// job description and translating its free-text fields.
//
// Every call is a single request with no retry. Failures come back as *Error
// with a Kind so callers can decide between a fallback and a surfaced error.
package assistant

import (
	"context"
	"log"

	"github.com/jonathan/cv-builder/internal/llm"
	"github.com/jonathan/cv-builder/internal/prompts"
	"github.com/jonathan/cv-builder/internal/types"
)

// Assistant issues prompts through an llm.Client.
type Assistant struct {
	client llm.Client
}

// New creates an Assistant. A nil client yields an assistant whose calls
// fail with KindNotConfigured.
func New(client llm.Client) *Assistant {
	return &Assistant{client: client}
}

// Configured reports whether a text-generation client is available
func (a *Assistant) Configured() bool {
	return a != nil && a.client != nil
}

// call describes one prompt round trip
type call struct {
	op          string
	systemKey   string
	promptKey   string
	data        map[string]string
	tier        llm.ModelTier
	temperature float32
	maxTokens   int
}

// generateJSON renders the prompt pair and returns the cleaned JSON answer.
func (a *Assistant) generateJSON(ctx context.Context, c call) (string, error) {
	if !a.Configured() {
		return "", &Error{Kind: KindNotConfigured, Op: c.op, Message: "text generation is not configured"}
	}

	system, err := prompts.Get(prompts.CV, c.systemKey)
	if err != nil {
		return "", &Error{Kind: KindNotConfigured, Op: c.op, Message: "missing system prompt", Cause: err}
	}
	prompt, err := prompts.Render(prompts.CV, c.promptKey, c.data)
	if err != nil {
		return "", &Error{Kind: KindNotConfigured, Op: c.op, Message: "missing prompt", Cause: err}
	}

	out, err := a.client.GenerateJSON(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Tier:        c.tier,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		log.Printf("[AI] %s request failed: %v", c.op, err)
		return "", &Error{Kind: KindUpstream, Op: c.op, Message: "text generation request failed", Cause: err}
	}
	return out, nil
}

// languageName is the prompt wording for a locale
func languageName(locale types.Locale) string {
	if locale == types.LocaleEN {
		return "English"
	}
	return "Spanish"
}
