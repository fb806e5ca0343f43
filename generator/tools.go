package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"content_machine/search"
)

const webSearchTool = "web_search"

type webSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// toolsFor returns the tools a role is granted. A WEB_SEARCH grant without a
// provider still yields the tool; calls then report that search is not
// configured and the researcher continues without it.
func toolsFor(role RoleSpec, provider search.Provider, defaultResults int) []Tool {
	if !role.Has(CapabilityWebSearch) {
		return nil
	}
	if provider == nil {
		provider = search.Unconfigured{Provider: "none"}
	}
	return []Tool{newWebSearchTool(provider, defaultResults)}
}

func newWebSearchTool(provider search.Provider, defaultResults int) Tool {
	return Tool{
		Name:        webSearchTool,
		Description: "Search the web for current information. Returns titles, URLs and snippets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to execute",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"minimum":     1,
					"maximum":     10,
				},
			},
			"required": []string{"query"},
		},
		Invoke: func(ctx context.Context, arguments string) (string, error) {
			var args webSearchArgs
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if strings.TrimSpace(args.Query) == "" {
				return "", errors.New("query is required")
			}
			n := args.MaxResults
			if n <= 0 {
				n = defaultResults
			}
			results, err := provider.Search(ctx, args.Query, n)
			if err != nil {
				return "", err
			}
			return search.Format(results), nil
		},
	}
}
