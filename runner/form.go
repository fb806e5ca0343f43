package runner

import (
	"fmt"
	"slices"
	"strings"

	"content_machine/generator"
)

// FormChoices are the input bounds offered by the interactive entry points.
type FormChoices struct {
	Tones      []string             `json:"tones"`
	Languages  []string             `json:"languages"`
	WordsMin   int                  `json:"words_min"`
	WordsMax   int                  `json:"words_max"`
	WordsStep  int                  `json:"words_step"`
	SourcesMin int                  `json:"sources_min"`
	SourcesMax int                  `json:"sources_max"`
	Defaults   generator.RunRequest `json:"defaults"`
}

// DefaultForm returns the stock choices with language, word range, sources and
// search seeded from defaults.
func DefaultForm(defaults generator.RunRequest) FormChoices {
	form := FormChoices{
		Tones:      []string{"Professional", "Friendly", "Academic", "Marketing"},
		Languages:  []string{"Russian", "English"},
		WordsMin:   500,
		WordsMax:   2500,
		WordsStep:  100,
		SourcesMin: 5,
		SourcesMax: 20,
		Defaults:   defaults,
	}
	if form.Defaults.Tone == "" {
		form.Defaults.Tone = form.Tones[0]
	}
	if form.Defaults.Language == "" {
		form.Defaults.Language = form.Languages[0]
	}
	if form.Defaults.WordCountMin == 0 {
		form.Defaults.WordCountMin = 800
	}
	if form.Defaults.WordCountMax == 0 {
		form.Defaults.WordCountMax = 1200
	}
	if form.Defaults.NumSources == 0 {
		form.Defaults.NumSources = form.SourcesMin
	}
	return form
}

// Check applies the form bounds on top of RunRequest.Validate.
func (f FormChoices) Check(req generator.RunRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	var problems []string
	if !slices.Contains(f.Tones, req.Tone) {
		problems = append(problems, fmt.Sprintf("tone must be one of %s", strings.Join(f.Tones, ", ")))
	}
	if !slices.Contains(f.Languages, req.Language) {
		problems = append(problems, fmt.Sprintf("language must be one of %s", strings.Join(f.Languages, ", ")))
	}
	for _, n := range []int{req.WordCountMin, req.WordCountMax} {
		if n < f.WordsMin || n > f.WordsMax || (n-f.WordsMin)%f.WordsStep != 0 {
			problems = append(problems, fmt.Sprintf("word counts must be within %d–%d in steps of %d", f.WordsMin, f.WordsMax, f.WordsStep))
			break
		}
	}
	if req.NumSources < f.SourcesMin || req.NumSources > f.SourcesMax {
		problems = append(problems, fmt.Sprintf("sources must be within %d–%d", f.SourcesMin, f.SourcesMax))
	}
	if len(problems) > 0 {
		return &generator.ValidationError{Problems: problems}
	}
	return nil
}
