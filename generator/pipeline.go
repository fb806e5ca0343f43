package generator

import (
	"context"
	"log/slog"
	"time"

	"content_machine/search"
)

// Pipeline is a fully wired research → write → edit chain for one RunRequest.
// It is immutable after NewPipeline returns; each Run starts from NOT_STARTED.
type Pipeline struct {
	req           RunRequest
	steps         [3]Step
	search        search.Provider
	searchResults int
	observer      func(Transition)
	logger        *slog.Logger
	clock         func() time.Time
	agent         *Agent
}

// Option customizes a Pipeline during construction.
type Option func(*Pipeline)

// WithSearch attaches the provider backing the researcher's web_search tool.
func WithSearch(provider search.Provider, resultsPerQuery int) Option {
	return func(p *Pipeline) {
		p.search = provider
		p.searchResults = resultsPerQuery
	}
}

// WithObserver receives every state transition of every Run.
func WithObserver(fn func(Transition)) Option {
	return func(p *Pipeline) {
		p.observer = fn
	}
}

// WithLogger overrides the logger used for transition records.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPipeline validates req, builds the three roles and stages and binds stage
// i to role i in one step.
func NewPipeline(req RunRequest, llm LLMClient, opts ...Option) (*Pipeline, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		req:    req,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.searchResults <= 0 {
		p.searchResults = req.NumSources
	}
	agent, err := NewAgent(llm, p.search, p.searchResults)
	if err != nil {
		return nil, err
	}
	p.agent = agent

	roles := BuildRoles(req.UseSearch)
	stages := BuildStages(req)
	for i := range p.steps {
		p.steps[i] = Step{Role: roles[i], Stage: stages[i]}
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Request returns the request the pipeline was built for.
func (p *Pipeline) Request() RunRequest {
	return p.req
}

// Steps returns the ordered role/stage bindings.
func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps[:])
	return out
}

// Run executes the stages strictly in order. Each stage receives the previous
// stage's full text. The first failure aborts the run; nothing is retried.
func (p *Pipeline) Run(ctx context.Context) (PipelineResult, error) {
	tracker := &runTracker{
		state:   StateNotStarted,
		started: p.clock(),
		clock:   p.clock,
		observer: func(tr Transition) {
			p.logTransition(tr)
			if p.observer != nil {
				p.observer(tr)
			}
		},
	}

	var previous string
	for i := range p.steps {
		step := p.steps[i]
		if err := tracker.advance(stateFor(step.Stage.Kind), &step, nil); err != nil {
			return PipelineResult{}, err
		}
		if err := ctx.Err(); err != nil {
			return PipelineResult{}, p.fail(tracker, &step, err)
		}
		out, err := p.agent.Execute(ctx, step, previous)
		if err != nil {
			return PipelineResult{}, p.fail(tracker, &step, err)
		}
		previous = out
	}

	result, err := PostProcess(previous)
	if err != nil {
		last := p.steps[len(p.steps)-1]
		return PipelineResult{}, p.fail(tracker, &last, err)
	}
	if err := tracker.advance(StateDone, nil, nil); err != nil {
		return PipelineResult{}, err
	}
	return result, nil
}

func (p *Pipeline) fail(tracker *runTracker, step *Step, err error) error {
	stageErr := &StageError{Stage: step.Stage.Kind, Role: step.Role.Name, Err: err}
	_ = tracker.advance(StateFailed, step, stageErr)
	return stageErr
}

func (p *Pipeline) logTransition(tr Transition) {
	attrs := []any{"from", tr.From, "to", tr.To, "elapsed", tr.Elapsed.Round(time.Millisecond)}
	if tr.Stage != "" {
		attrs = append(attrs, "stage", tr.Stage, "role", tr.Role)
	}
	if tr.Err != nil {
		p.logger.Error("pipeline failed", append(attrs, "error", tr.Err)...)
		return
	}
	p.logger.Info("pipeline transition", attrs...)
}
