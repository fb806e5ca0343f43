package runner

import (
	"fmt"

	"content_machine/config"
	"content_machine/generator"
	"content_machine/search"
)

// BuildLLM picks the chat client for the configured provider.
func BuildLLM(cfg config.LLMConfig) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
	}
	switch cfg.Provider {
	case "mock":
		return generator.MockLLM{}, nil
	case "", "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}

// BuildSearch returns the configured provider; a missing key yields a provider
// whose queries report that search is not configured.
func BuildSearch(cfg config.SearchConfig) (search.Provider, error) {
	return search.New(cfg.Provider, cfg.APIKey, search.Options{})
}
