package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const serperURL = "https://google.serper.dev/search"

type serper struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type serperReq struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type serperResp struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic"`
}

func newSerper(apiKey string, opts Options) *serper {
	base := opts.BaseURL
	if base == "" {
		base = serperURL
	}
	return &serper{apiKey: apiKey, baseURL: base, client: opts.Client}
}

func (s *serper) Name() string { return ProviderSerper }

func (s *serper) Search(ctx context.Context, query string, n int) ([]Result, error) {
	n = clampResults(n)
	body, err := json.Marshal(serperReq{Q: query, Num: n})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Provider: ProviderSerper, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var data serperResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(data.Organic))
	for _, o := range data.Organic {
		if len(results) == n {
			break
		}
		results = append(results, Result{Title: o.Title, URL: o.Link, Snippet: o.Snippet, Published: o.Date})
	}
	return results, nil
}
