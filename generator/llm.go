package generator

import (
	"context"
	"time"
)

// LLMClient completes one role prompt. Tool calls the prompt allows are
// resolved inside Complete; callers only see the final assistant text.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// DefaultMaxToolRounds bounds tool-call round trips per completion.
const DefaultMaxToolRounds = 6

// LLMSettings 描述一个 OpenAI 兼容端点。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Timeout applies per HTTP request; zero keeps the SDK default.
	Timeout time.Duration
	// MaxToolRounds of zero means DefaultMaxToolRounds.
	MaxToolRounds int
}

func (s *LLMSettings) toolRounds() int {
	if s.MaxToolRounds > 0 {
		return s.MaxToolRounds
	}
	return DefaultMaxToolRounds
}
