package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_machine/config"
	"content_machine/generator"
	"content_machine/logging"
	"content_machine/publisher"
)

// topicFailLLM fails every call whose prompt mentions failTopic.
type topicFailLLM struct {
	mu        sync.Mutex
	failTopic string
	calls     int
}

func (l *topicFailLLM) Complete(ctx context.Context, p generator.Prompt) (string, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.failTopic != "" && strings.Contains(p.User, l.failTopic) {
		return "", errors.New("rate limited")
	}
	return generator.MockLLM{}.Complete(ctx, p)
}

func newTestRunner(t *testing.T, llm generator.LLMClient) (*Runner, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "output")
	clock := func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local) }
	r, err := New(Options{
		LLM:       llm,
		Publisher: publisher.New(dir, publisher.WithClock(clock)),
		Logger:    logging.Discard(),
		Model:     "mock",
	})
	require.NoError(t, err)
	return r, dir
}

func TestRunSpaceWeatherEndToEnd(t *testing.T) {
	r, dir := newTestRunner(t, generator.MockLLM{})
	req := generator.RunRequest{
		Topic:        "Space weather",
		Audience:     "Curious learners",
		Tone:         "Clear, educational",
		Language:     "English",
		WordCountMin: 800,
		WordCountMax: 1200,
		UseSearch:    false,
		NumSources:   5,
	}

	var states []generator.State
	out, err := r.Run(context.Background(), req, Placement{}, func(tr generator.Transition) {
		states = append(states, tr.To)
	})
	require.NoError(t, err)
	assert.Equal(t, generator.StateDone, states[len(states)-1])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var md, js []string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".md":
			md = append(md, e.Name())
		case ".json":
			js = append(js, e.Name())
		}
	}
	require.Len(t, md, 1)
	require.Len(t, js, 1)
	assert.Contains(t, md[0], "space-weather")
	assert.Equal(t, "20240510_090000_space-weather.md", md[0])
	assert.Equal(t, filepath.Join(dir, md[0]), out.MarkdownPath)

	body, err := os.ReadFile(out.MarkdownPath)
	require.NoError(t, err)
	assert.Equal(t, out.Result.FinalText, string(body))

	var meta map[string]any
	raw, err := os.ReadFile(out.MetadataPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "Space weather", meta["topic"])
	assert.Equal(t, "Curious learners", meta["audience"])
	assert.Equal(t, "Clear, educational", meta["tone"])
	assert.Equal(t, []any{800.0, 1200.0}, meta["word_range"])
	assert.Equal(t, false, meta["use_search"])
	assert.Equal(t, 5.0, meta["num_sources"])
	assert.Equal(t, "English", meta["language"])
	assert.Equal(t, "Example article", meta["title"])
}

func TestRunFailureWritesNothing(t *testing.T) {
	r, dir := newTestRunner(t, &topicFailLLM{failTopic: "doomed"})
	_, err := r.Run(context.Background(), DefaultSettings().Request(Topic{Topic: "doomed topic"}), Placement{}, nil)
	var stageErr *generator.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, generator.StageResearch, stageErr.Stage)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "no output directory should be created")
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	llm := &topicFailLLM{}
	r, _ := newTestRunner(t, llm)
	_, err := r.Run(context.Background(), generator.RunRequest{Topic: "x"}, Placement{}, nil)
	var verr *generator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, llm.calls)
}

func TestBatchIsolatesFailures(t *testing.T) {
	llm := &topicFailLLM{failTopic: "personal finance"}
	r, dir := newTestRunner(t, llm)

	var started, done []int
	report := r.Batch(context.Background(), DefaultTopics, DefaultSettings(), BatchHooks{
		OnStart: func(index, total int, _ Topic) {
			assert.Equal(t, 3, total)
			started = append(started, index)
		},
		OnDone: func(item ItemResult) { done = append(done, item.Index) },
	})

	assert.Equal(t, []int{1, 2, 3}, started)
	assert.Equal(t, []int{1, 2, 3}, done)
	require.Len(t, report.Items, 3)
	assert.NoError(t, report.Items[0].Err)
	assert.Error(t, report.Items[1].Err)
	assert.NoError(t, report.Items[2].Err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Index)
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "topic 2")

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "20240510_090000_01_how-rag-systems-reduce-hallucinations-in-llm-apps.md", filepath.Base(files[0]))
	assert.Equal(t, "20240510_090000_03_what-is-space-weather-and-why-it-matters-for-gps-and-power-grids.md", filepath.Base(files[1]))
}

func TestBatchAllSucceed(t *testing.T) {
	r, _ := newTestRunner(t, generator.MockLLM{})
	report := r.Batch(context.Background(), DefaultTopics[:2], DefaultSettings(), BatchHooks{})
	assert.NoError(t, report.Err())
	assert.Empty(t, report.Failed())
}

func TestBatchStopsOnCancel(t *testing.T) {
	r, _ := newTestRunner(t, generator.MockLLM{})
	ctx, cancel := context.WithCancel(context.Background())
	report := r.Batch(ctx, DefaultTopics, DefaultSettings(), BatchHooks{
		OnDone: func(ItemResult) { cancel() },
	})
	require.Len(t, report.Items, 3)
	assert.NoError(t, report.Items[0].Err)
	assert.ErrorIs(t, report.Items[1].Err, context.Canceled)
	assert.ErrorIs(t, report.Items[2].Err, context.Canceled)
}

func TestLoadTopics(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(list, []byte("- topic: Солнечный ветер\n  audience: школьники\n  tone: Friendly\n- topic: GPS\n"), 0o644))
	topics, err := LoadTopics(list)
	require.NoError(t, err)
	assert.Equal(t, []Topic{{Topic: "Солнечный ветер", Audience: "школьники", Tone: "Friendly"}, {Topic: "GPS"}}, topics)

	wrapped := filepath.Join(dir, "wrapped.yaml")
	require.NoError(t, os.WriteFile(wrapped, []byte("topics:\n  - topic: Aurora\n"), 0o644))
	topics, err = LoadTopics(wrapped)
	require.NoError(t, err)
	assert.Equal(t, []Topic{{Topic: "Aurora"}}, topics)

	blank := filepath.Join(dir, "blank.yaml")
	require.NoError(t, os.WriteFile(blank, []byte("- audience: nobody\n"), 0o644))
	_, err = LoadTopics(blank)
	assert.ErrorContains(t, err, "topic is required")

	_, err = LoadTopics(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFormCheck(t *testing.T) {
	form := DefaultForm(generator.RunRequest{UseSearch: true})
	assert.Equal(t, "Professional", form.Defaults.Tone)
	assert.Equal(t, "Russian", form.Defaults.Language)
	assert.Equal(t, 800, form.Defaults.WordCountMin)
	assert.Equal(t, 1200, form.Defaults.WordCountMax)
	assert.Equal(t, 5, form.Defaults.NumSources)

	req := form.Defaults
	req.Topic = "Space weather"
	assert.NoError(t, form.Check(req))

	bad := req
	bad.Tone = "Sarcastic"
	bad.WordCountMax = 1250
	bad.NumSources = 25
	var verr *generator.ValidationError
	require.ErrorAs(t, form.Check(bad), &verr)
	assert.Len(t, verr.Problems, 3)

	blank := req
	blank.Topic = ""
	assert.ErrorContains(t, form.Check(blank), "topic is required")
}

func TestBuildLLM(t *testing.T) {
	llm, err := BuildLLM(config.LLMConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	_, err = BuildLLM(config.LLMConfig{Provider: "deepseek", APIKey: "k", Model: "m"})
	assert.ErrorContains(t, err, "base_url")

	_, err = BuildLLM(config.LLMConfig{Provider: "other"})
	assert.Error(t, err)

	llm, err = BuildLLM(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)
}
