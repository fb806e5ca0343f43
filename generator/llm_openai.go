package generator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
type OpenAILLM struct {
	Model  string
	Opts   []option.RequestOption
	client openai.Client
	// after this many tool rounds the model must answer without tools
	maxToolRounds int
}

func NewOpenAILLMFromConfig(cfg *LLMSettings, extra ...option.RequestOption) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY or llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	opts = append(opts, extra...)
	return &OpenAILLM{
		Model:         cfg.Model,
		Opts:          opts,
		client:        openai.NewClient(opts...),
		maxToolRounds: cfg.toolRounds(),
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	tools := make(map[string]Tool, len(prompt.Tools))
	for _, t := range prompt.Tools {
		tools[t.Name] = t
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}

	for round := 0; ; round++ {
		if round == o.maxToolRounds {
			// out of tool budget: force a plain answer from what was gathered
			params.Tools = nil
		}
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai: empty choices")
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 || len(params.Tools) == 0 {
			return msg.Content, nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			out := runTool(ctx, tools, call.Function.Name, call.Function.Arguments)
			params.Messages = append(params.Messages, openai.ToolMessage(out, call.ID))
		}
	}
}

// runTool never fails the completion: tool errors are reported back to the
// model as text so the stage can continue without the tool.
func runTool(ctx context.Context, tools map[string]Tool, name, args string) string {
	t, ok := tools[name]
	if !ok || t.Invoke == nil {
		return fmt.Sprintf("tool %q is not available", name)
	}
	out, err := t.Invoke(ctx, args)
	if err != nil {
		return fmt.Sprintf("tool %s failed: %v", name, err)
	}
	return out
}
