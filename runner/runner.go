// Package runner joins the generation pipeline to the publisher: every entry
// point runs requests through it so artifacts are named and written the same
// way.
package runner

import (
	"context"
	"errors"
	"log/slog"

	"content_machine/generator"
	"content_machine/publisher"
	"content_machine/search"
)

// Runner executes a request end to end: build pipeline, run it, persist.
type Runner struct {
	llm           generator.LLMClient
	search        search.Provider
	searchResults int
	pub           *publisher.Publisher
	logger        *slog.Logger
	model         string
}

// Options wires the Runner's collaborators.
type Options struct {
	LLM           generator.LLMClient
	Search        search.Provider
	SearchResults int
	Publisher     *publisher.Publisher
	Logger        *slog.Logger
	// Model is recorded in metadata only.
	Model string
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.LLM == nil {
		return nil, errors.New("runner: llm client is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("runner: publisher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		llm:           opts.LLM,
		search:        opts.Search,
		searchResults: opts.SearchResults,
		pub:           opts.Publisher,
		logger:        logger.With("component", "runner"),
		model:         opts.Model,
	}, nil
}

// WithLogger returns a copy of r that logs to logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	cp := *r
	cp.logger = logger.With("component", "runner")
	return &cp
}

// Publisher exposes the output directory owner for history and viewers.
func (r *Runner) Publisher() *publisher.Publisher {
	return r.pub
}

// Placement controls artifact naming. Stamp defaults to the publisher clock;
// Index > 0 adds the batch sequence number.
type Placement struct {
	Stamp string
	Index int
}

// Run executes req and persists the result. Nothing is written when the
// pipeline fails.
func (r *Runner) Run(ctx context.Context, req generator.RunRequest, place Placement, observe func(generator.Transition)) (generator.Outcome, error) {
	opts := []generator.Option{
		generator.WithSearch(r.search, r.searchResults),
		generator.WithLogger(r.logger),
	}
	if observe != nil {
		opts = append(opts, generator.WithObserver(observe))
	}
	pipeline, err := generator.NewPipeline(req, r.llm, opts...)
	if err != nil {
		return generator.Outcome{}, err
	}
	result, err := pipeline.Run(ctx)
	if err != nil {
		return generator.Outcome{}, err
	}

	art, err := r.pub.SaveAt(result.FinalText, MetadataFor(req, result, r.model), place.Stamp, place.Index)
	if err != nil {
		return generator.Outcome{}, err
	}
	r.logger.Info("article saved", "path", art.MarkdownPath, "topic", req.Topic)
	return generator.Outcome{
		Request:      req,
		Result:       result,
		MarkdownPath: art.MarkdownPath,
		MetadataPath: art.MetadataPath,
		FinishedAt:   r.pub.Now(),
	}, nil
}

// RunFunc adapts Run for generator.Session.
func (r *Runner) RunFunc(observe func(generator.Transition)) generator.RunFunc {
	return func(ctx context.Context, req generator.RunRequest) (generator.Outcome, error) {
		return r.Run(ctx, req, Placement{}, observe)
	}
}

// MetadataFor builds the companion JSON for a finished run.
func MetadataFor(req generator.RunRequest, res generator.PipelineResult, model string) publisher.Metadata {
	wordRange := [2]int{req.WordCountMin, req.WordCountMax}
	useSearch := req.UseSearch
	return publisher.Metadata{
		Topic:      req.Topic,
		Audience:   req.Audience,
		Tone:       req.Tone,
		WordRange:  &wordRange,
		UseSearch:  &useSearch,
		NumSources: req.NumSources,
		Language:   req.Language,
		Title:      res.Title,
		Model:      model,
	}
}
