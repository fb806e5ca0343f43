package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"content_machine/config"
	"content_machine/generator"
	"content_machine/publisher"
)

// Topic is one batch entry.
type Topic struct {
	Topic    string `yaml:"topic"`
	Audience string `yaml:"audience"`
	Tone     string `yaml:"tone"`
}

// DefaultTopics is the built-in batch list.
var DefaultTopics = []Topic{
	{
		Topic:    "How RAG systems reduce hallucinations in LLM apps",
		Audience: "Software engineers and technical managers",
		Tone:     "Professional, practical",
	},
	{
		Topic:    "Beginner-friendly guide to personal finance: budgeting and emergency fund",
		Audience: "General audience (18–35)",
		Tone:     "Friendly, encouraging",
	},
	{
		Topic:    "What is space weather and why it matters for GPS and power grids",
		Audience: "Curious learners with basic science background",
		Tone:     "Clear, educational",
	},
}

type topicsFile struct {
	Topics []Topic `yaml:"topics"`
}

// LoadTopics reads a YAML file holding either a bare list of topics or a
// mapping with a "topics" key.
func LoadTopics(path string) ([]Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runner: read topics %s: %w", path, err)
	}
	var topics []Topic
	if err := yaml.Unmarshal(data, &topics); err != nil {
		var wrapped topicsFile
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("runner: parse topics %s: %w", path, err)
		}
		topics = wrapped.Topics
	}
	for i, t := range topics {
		if strings.TrimSpace(t.Topic) == "" {
			return nil, fmt.Errorf("runner: topics[%d]: topic is required", i)
		}
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("runner: %s lists no topics", path)
	}
	return topics, nil
}

// BatchSettings are the constraints shared by every topic of a batch.
type BatchSettings struct {
	Language     string
	WordCountMin int
	WordCountMax int
	NumSources   int
	UseSearch    bool
	// Stamp names every artifact of the batch; empty means the start time.
	Stamp string
}

// SettingsFrom seeds batch settings from configured run defaults.
func SettingsFrom(d config.RunDefaults) BatchSettings {
	return BatchSettings{
		Language:     d.Language,
		WordCountMin: d.WordCountMin,
		WordCountMax: d.WordCountMax,
		NumSources:   d.NumSources,
		UseSearch:    d.UseSearch,
	}
}

// DefaultSettings is SettingsFrom the built-in defaults.
func DefaultSettings() BatchSettings {
	return SettingsFrom(config.BuiltinDefaults())
}

// Request builds the RunRequest for one topic.
func (s BatchSettings) Request(t Topic) generator.RunRequest {
	return generator.RunRequest{
		Topic:        t.Topic,
		Audience:     t.Audience,
		Tone:         t.Tone,
		Language:     s.Language,
		WordCountMin: s.WordCountMin,
		WordCountMax: s.WordCountMax,
		UseSearch:    s.UseSearch,
		NumSources:   s.NumSources,
	}
}

// ItemResult is the outcome of one batch topic.
type ItemResult struct {
	Index   int
	Topic   Topic
	Outcome generator.Outcome
	Err     error
}

// BatchReport collects every item of a batch in order.
type BatchReport struct {
	Items []ItemResult
}

// Failed returns the items that did not produce an artifact.
func (r BatchReport) Failed() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Err != nil {
			out = append(out, item)
		}
	}
	return out
}

// Err joins every item failure, or returns nil when all succeeded.
func (r BatchReport) Err() error {
	var errs []error
	for _, item := range r.Failed() {
		errs = append(errs, fmt.Errorf("topic %d (%s): %w", item.Index, item.Topic.Topic, item.Err))
	}
	return errors.Join(errs...)
}

// BatchHooks lets callers follow progress.
type BatchHooks struct {
	OnStart      func(index, total int, t Topic)
	OnTransition func(index int, tr generator.Transition)
	OnDone       func(item ItemResult)
}

// Batch runs every topic in order. A failing topic is recorded and the batch
// continues with the next one; only context cancellation stops it early, and
// the remaining topics are then reported with the context error.
func (r *Runner) Batch(ctx context.Context, topics []Topic, settings BatchSettings, hooks BatchHooks) BatchReport {
	if settings.Stamp == "" {
		settings.Stamp = publisher.FormatTimestamp(r.pub.Now())
	}
	report := BatchReport{Items: make([]ItemResult, 0, len(topics))}
	for i, t := range topics {
		index := i + 1
		item := ItemResult{Index: index, Topic: t}
		if err := ctx.Err(); err != nil {
			item.Err = err
			report.Items = append(report.Items, item)
			continue
		}
		if hooks.OnStart != nil {
			hooks.OnStart(index, len(topics), t)
		}
		var observe func(generator.Transition)
		if hooks.OnTransition != nil {
			observe = func(tr generator.Transition) { hooks.OnTransition(index, tr) }
		}
		item.Outcome, item.Err = r.Run(ctx, settings.Request(t), Placement{Stamp: settings.Stamp, Index: index}, observe)
		if item.Err != nil {
			r.logger.Error("batch topic failed", "index", index, "topic", t.Topic, "error", item.Err)
		}
		if hooks.OnDone != nil {
			hooks.OnDone(item)
		}
		report.Items = append(report.Items, item)
	}
	return report
}
