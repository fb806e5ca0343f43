package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const tavilyURL = "https://api.tavily.com/search"

type tavily struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type tavilyReq struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResp struct {
	Results []struct {
		Title     string  `json:"title"`
		URL       string  `json:"url"`
		Content   string  `json:"content"`
		Score     float64 `json:"score"`
		Published string  `json:"published_date,omitempty"`
	} `json:"results"`
}

func newTavily(apiKey string, opts Options) *tavily {
	base := opts.BaseURL
	if base == "" {
		base = tavilyURL
	}
	return &tavily{apiKey: apiKey, baseURL: base, client: opts.Client}
}

func (t *tavily) Name() string { return ProviderTavily }

func (t *tavily) Search(ctx context.Context, query string, n int) ([]Result, error) {
	n = clampResults(n)
	body, err := json.Marshal(tavilyReq{APIKey: t.apiKey, Query: query, SearchDepth: "basic", MaxResults: n})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Provider: ProviderTavily, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var data tavilyResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(data.Results))
	for _, r := range data.Results {
		if len(results) == n {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content, Published: r.Published})
	}
	return results, nil
}
