package generator

import (
	"context"
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System  string
	User    string
	History []Message
	Tools   []Tool
}

// Message 用于少量历史（可选）。
type Message struct {
	Role    string
	Content string
}

// Tool is a function the model may call while answering. Invoke receives the
// raw JSON arguments and returns the text handed back to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Invoke      func(ctx context.Context, arguments string) (string, error)
}

// BuildStagePrompt renders the prompt for one role executing one stage.
// previous is the full text output of the prior stage and is empty for the
// first stage.
func BuildStagePrompt(role RoleSpec, stage StageSpec, previous string, tools []Tool) Prompt {
	var sys strings.Builder
	sys.WriteString(fmt.Sprintf("You are the %s.\n", role.Name))
	sys.WriteString(role.Persona)
	sys.WriteString("\n\nYour goal: ")
	sys.WriteString(role.Goal)
	sys.WriteString("\nComplete the task yourself; do not hand it off to anyone else.")
	sys.WriteString("\n\nExpected output: ")
	sys.WriteString(stage.ExpectedOutput)
	if len(tools) > 0 {
		sys.WriteString("\n\nYou may call the available tools to gather information before answering.")
	}

	var user strings.Builder
	user.WriteString(stage.Instructions)
	if strings.TrimSpace(previous) != "" {
		user.WriteString("\n\nContext from the previous step:\n")
		user.WriteString(previous)
	}

	return Prompt{
		System: sys.String(),
		User:   user.String(),
		Tools:  tools,
	}
}
