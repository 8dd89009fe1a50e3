package app

import (
	"context"
	"fmt"
	"time"

	"healthchat/internal/util"
	"healthchat/pkg/ai"
)

const (
	// FallbackReply is returned whenever the provider call fails or yields no text.
	FallbackReply = "Sorry, I couldn't generate a response."

	defaultGenerationTimeout = 30 * time.Second
)

// DefaultGenerationConfig holds the fixed decoding parameters.
var DefaultGenerationConfig = ai.GenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 1024,
}

const promptTemplate = `
You are a helpful and supportive AI healthcare assistant.

The user asked:
"%s"

Your reply must be in the following format:

**Understanding the issue:**  
- Briefly explain what the issue might be about.

**Suggestions to overcome it:**  
- Provide 5 to 6 clear, actionable tips or lifestyle improvements that might help the user manage or improve their condition (e.g., rest, hydration, diet, relaxation, exercise, hygiene, etc.).

Always end with this disclaimer:
⚠️ Please consult a certified medical professional for personal medical advice.
`

// BuildPrompt embeds the raw user message into the instruction template.
func BuildPrompt(message string) string {
	return fmt.Sprintf(promptTemplate, message)
}

// Assistant wraps the text generator with the fixed prompt and decoding
// parameters. Output structure is left to the provider.
type Assistant struct {
	generator ai.TextGenerator
	timeout   time.Duration
}

// NewAssistant builds an Assistant; a non-positive timeout selects the default.
func NewAssistant(generator ai.TextGenerator, timeout time.Duration) *Assistant {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &Assistant{generator: generator, timeout: timeout}
}

// Complete always returns text: the provider reply or FallbackReply.
// The call is detached from caller cancellation and bounded by the timeout.
func (a *Assistant) Complete(ctx context.Context, message string) string {
	logger := util.LoggerFromContext(ctx)
	if a == nil || a.generator == nil {
		logger.Warn("completion skipped: generator not configured")
		return FallbackReply
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.generator.GenerateText(callCtx, BuildPrompt(message), DefaultGenerationConfig)
	if err != nil {
		logger.Warn("completion failed, using fallback", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return FallbackReply
	}
	if text == "" {
		logger.Warn("completion returned empty text, using fallback")
		return FallbackReply
	}
	logger.Debug("completion succeeded", "duration_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return text
}
