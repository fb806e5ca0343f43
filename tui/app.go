// Package tui is the interactive terminal entry point: a form for one run, a
// progress view that follows the pipeline stages, a Markdown result viewer and
// the history of saved articles.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"content_machine/generator"
	"content_machine/publisher"
	"content_machine/runner"
)

type screen int

const (
	screenForm screen = iota
	screenRunning
	screenResult
	screenHistory
)

// RunFunc executes one request, reporting stage transitions to observe.
type RunFunc func(ctx context.Context, req generator.RunRequest, observe func(generator.Transition)) (generator.Outcome, error)

// Options wires the App.
type Options struct {
	Run       RunFunc
	Publisher *publisher.Publisher
	Form      runner.FormChoices
	Warnings  []string
}

type (
	transitionMsg generator.Transition
	runDoneMsg    struct {
		outcome generator.Outcome
		err     error
	}
	historyMsg struct {
		entries []publisher.HistoryEntry
		err     error
	}
	articleMsg struct {
		name     string
		markdown string
		err      error
	}
)

// historyItem implements list.DefaultItem.
type historyItem struct {
	entry publisher.HistoryEntry
}

func (i historyItem) Title() string { return i.entry.Topic }
func (i historyItem) Description() string {
	desc := i.entry.Timestamp + " · " + i.entry.File
	if i.entry.MetadataState != publisher.MetadataOK {
		desc += " · metadata " + string(i.entry.MetadataState)
	}
	return desc
}
func (i historyItem) FilterValue() string { return i.entry.Topic }

// App is the bubbletea model.
type App struct {
	ctx      context.Context
	pub      *publisher.Publisher
	session  *generator.Session
	events   chan generator.Transition
	warnings []string

	screen   screen
	form     form
	spinner  spinner.Model
	viewport viewport.Model
	history  list.Model

	stages   []string
	started  time.Time
	result   string
	resultOf string
	raw      bool
	status   string
	err      error
	width    int
	height   int
}

// New builds the App. ctx bounds every run started from it.
func New(ctx context.Context, opts Options) *App {
	a := &App{
		ctx:      ctx,
		pub:      opts.Publisher,
		events:   make(chan generator.Transition, 16),
		warnings: opts.Warnings,
		form:     newForm(opts.Form),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(80, 20),
		history:  list.New(nil, list.NewDefaultDelegate(), 80, 20),
	}
	a.history.Title = "History"
	run := opts.Run
	a.session = generator.NewSession("tui", func(ctx context.Context, req generator.RunRequest) (generator.Outcome, error) {
		return run(ctx, req, a.observe)
	})
	return a
}

// Run starts the program on the alternate screen.
func Run(ctx context.Context, opts Options) error {
	_, err := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// observe is called on the pipeline goroutine; a full buffer drops the event.
func (a *App) observe(tr generator.Transition) {
	select {
	case a.events <- tr:
	default:
	}
}

func (a *App) waitTransition() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		return transitionMsg(<-events)
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.form.topic.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.viewport.Width = msg.Width - 4
		a.viewport.Height = max(msg.Height-6, 5)
		a.history.SetSize(msg.Width-2, msg.Height-2)
		if a.result != "" {
			a.renderResult()
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case transitionMsg:
		a.stages = append(a.stages, describeTransition(generator.Transition(msg)))
		if a.screen == screenRunning {
			return a, a.waitTransition()
		}
		return a, nil

	case runDoneMsg:
		if msg.err != nil {
			a.err = msg.err
			a.screen = screenForm
			return a, nil
		}
		a.err = nil
		a.status = "Saved " + msg.outcome.MarkdownPath
		a.showArticle(filepath.Base(msg.outcome.MarkdownPath), msg.outcome.Result.FinalText)
		return a, nil

	case historyMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		items := make([]list.Item, 0, len(msg.entries))
		for _, e := range msg.entries {
			items = append(items, historyItem{entry: e})
		}
		return a, a.history.SetItems(items)

	case articleMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.status = ""
		a.showArticle(msg.name, msg.markdown)
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.screen {
	case screenForm:
		switch msg.String() {
		case "esc":
			return a, tea.Quit
		case "ctrl+l":
			return a, a.openHistory()
		case "enter":
			return a, a.submit()
		}
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg)
		return a, cmd

	case screenRunning:
		return a, nil

	case screenResult:
		switch msg.String() {
		case "q", "esc":
			return a, tea.Quit
		case "n":
			a.screen = screenForm
			return a, a.form.setFocus(fieldTopic)
		case "r":
			a.raw = !a.raw
			a.renderResult()
			return a, nil
		case "ctrl+l", "H":
			return a, a.openHistory()
		}
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case screenHistory:
		if a.history.FilterState() != list.Filtering {
			switch msg.String() {
			case "esc":
				a.screen = screenForm
				return a, nil
			case "enter":
				if item, ok := a.history.SelectedItem().(historyItem); ok {
					return a, a.loadArticle(item.entry.File)
				}
				return a, nil
			case "ctrl+r":
				return a, a.loadHistory()
			}
		}
		var cmd tea.Cmd
		a.history, cmd = a.history.Update(msg)
		return a, cmd
	}
	return a, nil
}

// submit validates the form and starts a run on the session.
func (a *App) submit() tea.Cmd {
	req := a.form.request()
	if err := a.form.choices.Check(req); err != nil {
		a.err = err
		return nil
	}
	a.err = nil
	a.status = ""
	a.stages = nil
	a.started = time.Now()
	a.screen = screenRunning
	sess, ctx := a.session, a.ctx
	run := func() tea.Msg {
		out, err := sess.Generate(ctx, req)
		return runDoneMsg{outcome: out, err: err}
	}
	return tea.Batch(run, a.waitTransition(), a.spinner.Tick)
}

func (a *App) openHistory() tea.Cmd {
	a.screen = screenHistory
	return a.loadHistory()
}

func (a *App) loadHistory() tea.Cmd {
	pub := a.pub
	return func() tea.Msg {
		entries, err := pub.History()
		return historyMsg{entries: entries, err: err}
	}
}

func (a *App) loadArticle(name string) tea.Cmd {
	pub := a.pub
	return func() tea.Msg {
		md, err := pub.ReadArticle(name)
		return articleMsg{name: name, markdown: md, err: err}
	}
}

func (a *App) showArticle(name, markdown string) {
	a.resultOf = name
	a.result = markdown
	a.raw = false
	a.screen = screenResult
	a.renderResult()
}

func (a *App) renderResult() {
	content := a.result
	if !a.raw {
		content = renderMarkdown(a.result, a.viewport.Width)
	}
	a.viewport.SetContent(content)
	a.viewport.GotoTop()
}

// renderMarkdown falls back to the raw text when glamour cannot render.
func renderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func describeTransition(tr generator.Transition) string {
	switch tr.To {
	case generator.StateDone:
		return doneStyle.Render(fmt.Sprintf("✓ done in %s", tr.Elapsed.Round(time.Second)))
	case generator.StateFailed:
		return errorStyle.Render(fmt.Sprintf("✗ %s failed: %v", tr.Stage, tr.Err))
	}
	return fmt.Sprintf("• %s (%s)", tr.To, tr.Role)
}

func (a *App) View() string {
	var b strings.Builder
	switch a.screen {
	case screenForm:
		b.WriteString(titleStyle.Render("Content Machine") + "\n\n")
		for _, w := range a.warnings {
			b.WriteString(warnStyle.Render("! "+w) + "\n")
		}
		b.WriteString(frameStyle.Render(a.form.view()) + "\n")
		if a.err != nil {
			b.WriteString(errorStyle.Render(a.err.Error()) + "\n")
		}
		b.WriteString(dimStyle.Render("tab/↑↓ move · ←/→ change · enter generate · ctrl+l history · esc quit"))

	case screenRunning:
		req := a.form.request()
		b.WriteString(titleStyle.Render(req.Topic) + "\n\n")
		for _, s := range a.stages {
			b.WriteString(s + "\n")
		}
		b.WriteString(fmt.Sprintf("\n%s working… %s\n", a.spinner.View(), time.Since(a.started).Round(time.Second)))

	case screenResult:
		b.WriteString(titleStyle.Render(a.resultOf) + "\n")
		if a.status != "" {
			b.WriteString(doneStyle.Render(a.status) + "\n")
		}
		b.WriteString(a.viewport.View() + "\n")
		mode := "rendered"
		if a.raw {
			mode = "markdown"
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s · r toggle raw · n new · H history · q quit", mode)))

	case screenHistory:
		b.WriteString(a.history.View() + "\n")
		if a.err != nil {
			b.WriteString(errorStyle.Render(a.err.Error()) + "\n")
		}
		b.WriteString(dimStyle.Render("enter open · ctrl+r refresh · esc back"))
	}
	return b.String()
}
