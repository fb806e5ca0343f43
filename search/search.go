// Package search provides the web search backends behind the researcher's
// web_search capability.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Unconfigured and by constructors when no API
// key was supplied.
var ErrNotConfigured = errors.New("search: provider is not configured (missing API key)")

const (
	ProviderSerper = "serper"
	ProviderTavily = "tavily"

	defaultResults = 5
	maxResults     = 10
)

// Result is one hit returned by a provider.
type Result struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Snippet   string `json:"snippet"`
	Published string `json:"published,omitempty"`
}

// Provider runs a query and returns up to n results.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// StatusError carries a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search: %s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Options tweaks provider construction.
type Options struct {
	Client  *http.Client
	BaseURL string
}

// New builds the named provider. An empty key yields Unconfigured so callers can
// still declare the capability; queries then fail with ErrNotConfigured.
func New(name, apiKey string, opts Options) (Provider, error) {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = ProviderSerper
	}
	if strings.TrimSpace(apiKey) == "" {
		switch name {
		case ProviderSerper, ProviderTavily:
			return Unconfigured{Provider: name}, nil
		}
	}
	switch name {
	case ProviderSerper:
		return newSerper(apiKey, opts), nil
	case ProviderTavily:
		return newTavily(apiKey, opts), nil
	default:
		return nil, fmt.Errorf("search: provider %s not supported", name)
	}
}

// Unconfigured stands in for a provider whose credential is absent.
type Unconfigured struct {
	Provider string
}

func (u Unconfigured) Name() string { return u.Provider }

func (u Unconfigured) Search(context.Context, string, int) ([]Result, error) {
	return nil, ErrNotConfigured
}

// Format renders results as a numbered plain-text list with URLs kept verbatim.
func Format(results []Result) string {
	if len(results) == 0 {
		return "No results."
	}
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s\n   URL: %s\n", i+1, r.Title, r.URL))
		if r.Published != "" {
			sb.WriteString(fmt.Sprintf("   Published: %s\n", r.Published))
		}
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
	}
	return sb.String()
}

func clampResults(n int) int {
	if n <= 0 {
		return defaultResults
	}
	if n > maxResults {
		return maxResults
	}
	return n
}
