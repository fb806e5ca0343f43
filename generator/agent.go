package generator

import (
	"context"
	"errors"
	"strings"

	"content_machine/search"
)

// Agent 负责以某个角色身份执行单个阶段。
type Agent struct {
	llm           LLMClient
	search        search.Provider
	searchResults int
}

func NewAgent(llm LLMClient, provider search.Provider, searchResults int) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, search: provider, searchResults: searchResults}, nil
}

// Execute 运行一个 step；previous 为上一阶段的完整文本输出。
func (a *Agent) Execute(ctx context.Context, step Step, previous string) (string, error) {
	prompt := BuildStagePrompt(step.Role, step.Stage, previous, toolsFor(step.Role, a.search, a.searchResults))
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyOutput
	}
	return raw, nil
}
