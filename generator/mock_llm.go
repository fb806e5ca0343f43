package generator

import (
	"context"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// It answers every stage with Markdown derived from the prompt so the whole
// pipeline and persistence path can run offline.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	var sb strings.Builder
	switch {
	case strings.Contains(prompt.System, RoleResearcher):
		sb.WriteString("## Research brief\n\n")
		sb.WriteString("- Key point drawn from the request\n")
		sb.WriteString("- Source: https://example.com/source\n\n")
	case strings.Contains(prompt.System, RoleWriter):
		sb.WriteString("# Draft article\n\n")
		sb.WriteString("This draft was generated offline.\n\n")
	default:
		sb.WriteString("# Example article\n\n")
		sb.WriteString("This article was generated offline by the mock model.\n\n")
		sb.WriteString("## Request\n\n")
	}
	sb.WriteString("```\n")
	sb.WriteString(firstLine(prompt.User))
	sb.WriteString("\n```\n")
	return sb.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
