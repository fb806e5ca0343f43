package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"content_machine/generator"
	"content_machine/runner"
)

type fieldID int

const (
	fieldTopic fieldID = iota
	fieldAudience
	fieldTone
	fieldLanguage
	fieldWordsMin
	fieldWordsMax
	fieldSources
	fieldSearch
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldTopic:    "Topic",
	fieldAudience: "Audience",
	fieldTone:     "Tone",
	fieldLanguage: "Language",
	fieldWordsMin: "Min words",
	fieldWordsMax: "Max words",
	fieldSources:  "Sources",
	fieldSearch:   "Web search",
}

// form holds the run parameters being edited. Text fields use textinput; the
// rest are adjusted with left/right within the FormChoices bounds.
type form struct {
	choices  runner.FormChoices
	topic    textinput.Model
	audience textinput.Model
	tone     int
	language int
	wordsMin int
	wordsMax int
	sources  int
	search   bool
	focus    fieldID
}

func newForm(choices runner.FormChoices) form {
	topic := textinput.New()
	topic.Placeholder = "What should the article be about?"
	topic.CharLimit = 300
	topic.Width = 60
	topic.Focus()

	audience := textinput.New()
	audience.Placeholder = "Who is it for?"
	audience.CharLimit = 200
	audience.Width = 60

	d := choices.Defaults
	audience.SetValue(d.Audience)
	return form{
		choices:  choices,
		topic:    topic,
		audience: audience,
		tone:     max(slices.Index(choices.Tones, d.Tone), 0),
		language: max(slices.Index(choices.Languages, d.Language), 0),
		wordsMin: d.WordCountMin,
		wordsMax: d.WordCountMax,
		sources:  d.NumSources,
		search:   d.UseSearch,
	}
}

// request builds the RunRequest from the current field values.
func (f form) request() generator.RunRequest {
	return generator.RunRequest{
		Topic:        strings.TrimSpace(f.topic.Value()),
		Audience:     strings.TrimSpace(f.audience.Value()),
		Tone:         f.choices.Tones[f.tone],
		Language:     f.choices.Languages[f.language],
		WordCountMin: f.wordsMin,
		WordCountMax: f.wordsMax,
		UseSearch:    f.search,
		NumSources:   f.sources,
	}
}

func (f *form) setFocus(id fieldID) tea.Cmd {
	f.focus = (id + fieldCount) % fieldCount
	f.topic.Blur()
	f.audience.Blur()
	switch f.focus {
	case fieldTopic:
		return f.topic.Focus()
	case fieldAudience:
		return f.audience.Focus()
	}
	return nil
}

// adjust moves the focused choice field by delta steps.
func (f *form) adjust(delta int) {
	c := f.choices
	switch f.focus {
	case fieldTone:
		f.tone = wrap(f.tone+delta, len(c.Tones))
	case fieldLanguage:
		f.language = wrap(f.language+delta, len(c.Languages))
	case fieldWordsMin:
		f.wordsMin = clamp(f.wordsMin+delta*c.WordsStep, c.WordsMin, c.WordsMax)
		f.wordsMax = max(f.wordsMax, f.wordsMin)
	case fieldWordsMax:
		f.wordsMax = clamp(f.wordsMax+delta*c.WordsStep, c.WordsMin, c.WordsMax)
		f.wordsMin = min(f.wordsMin, f.wordsMax)
	case fieldSources:
		f.sources = clamp(f.sources+delta, c.SourcesMin, c.SourcesMax)
	case fieldSearch:
		f.search = !f.search
	}
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}
	switch key.String() {
	case "tab", "down":
		return f, f.setFocus(f.focus + 1)
	case "shift+tab", "up":
		return f, f.setFocus(f.focus - 1)
	}
	var cmd tea.Cmd
	switch f.focus {
	case fieldTopic:
		f.topic, cmd = f.topic.Update(msg)
	case fieldAudience:
		f.audience, cmd = f.audience.Update(msg)
	default:
		switch key.String() {
		case "left", "h":
			f.adjust(-1)
		case "right", "l", " ":
			f.adjust(1)
		}
	}
	return f, cmd
}

func (f form) view() string {
	var b strings.Builder
	for id := fieldTopic; id < fieldCount; id++ {
		label := labelStyle
		if id == f.focus {
			label = focusedLabelStyle
		}
		b.WriteString(label.Render(fieldLabels[id]))
		b.WriteString(f.value(id))
		b.WriteString("\n")
	}
	return b.String()
}

func (f form) value(id fieldID) string {
	switch id {
	case fieldTopic:
		return f.topic.View()
	case fieldAudience:
		return f.audience.View()
	case fieldTone:
		return "‹ " + f.choices.Tones[f.tone] + " ›"
	case fieldLanguage:
		return "‹ " + f.choices.Languages[f.language] + " ›"
	case fieldWordsMin:
		return fmt.Sprintf("‹ %d ›", f.wordsMin)
	case fieldWordsMax:
		return fmt.Sprintf("‹ %d ›", f.wordsMax)
	case fieldSources:
		return fmt.Sprintf("‹ %d ›", f.sources)
	case fieldSearch:
		if f.search {
			return "[x] on"
		}
		return "[ ] off"
	}
	return ""
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
