package generator

import (
	"context"
	"sync"
	"time"

	"content_machine/search"
)

// scriptedLLM replies with replies[i] on the i-th call and records prompts.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	failAt  int
	err     error
	prompts []Prompt
}

func newScripted(replies ...string) *scriptedLLM {
	return &scriptedLLM{replies: replies, failAt: -1}
}

func (s *scriptedLLM) Complete(_ context.Context, p Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.prompts)
	s.prompts = append(s.prompts, p)
	if i == s.failAt {
		return "", s.err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

func (s *scriptedLLM) calls() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt{}, s.prompts...)
}

type fakeSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(_ context.Context, query string, n int) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.results) {
		return f.results[:n], nil
	}
	return f.results, nil
}

func validRequest() RunRequest {
	return RunRequest{
		Topic:        "Space weather",
		Audience:     "Curious learners",
		Tone:         "Clear, educational",
		Language:     "English",
		WordCountMin: 800,
		WordCountMax: 1200,
		UseSearch:    true,
		NumSources:   5,
	}
}

// stepClock advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}
