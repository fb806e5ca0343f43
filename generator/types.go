package generator

import "strings"

// RunRequest 描述一次生成任务的全部参数，构建后不再修改。
type RunRequest struct {
	Topic        string `json:"topic"`
	Audience     string `json:"audience"`
	Tone         string `json:"tone"`
	Language     string `json:"language"`
	WordCountMin int    `json:"word_count_min"`
	WordCountMax int    `json:"word_count_max"`
	UseSearch    bool   `json:"use_search"`
	NumSources   int    `json:"num_sources"`
}

// Validate rejects requests whose constraints would render nonsensical
// instructions.
func (r RunRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Topic) == "" {
		problems = append(problems, "topic is required")
	}
	if strings.TrimSpace(r.Language) == "" {
		problems = append(problems, "language is required")
	}
	if r.WordCountMin < 1 {
		problems = append(problems, "word_count_min must be >= 1")
	}
	if r.WordCountMin > r.WordCountMax {
		problems = append(problems, "word_count_min must not exceed word_count_max")
	}
	if r.NumSources < 1 {
		problems = append(problems, "num_sources must be >= 1")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Capability is a tool grant attached to a role.
type Capability string

const (
	CapabilityWebSearch Capability = "web_search"
)

// RoleSpec is one agent persona. Goal and Persona are fixed; only stage
// instructions vary per run.
type RoleSpec struct {
	Name         string
	Goal         string
	Persona      string
	capabilities []Capability
}

// Capabilities returns a copy of the role's granted capabilities.
func (r RoleSpec) Capabilities() []Capability {
	return append([]Capability{}, r.capabilities...)
}

// Has reports whether the role was granted c.
func (r RoleSpec) Has(c Capability) bool {
	for _, have := range r.capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// StageKind identifies a step of the research → write → edit chain.
type StageKind string

const (
	StageResearch StageKind = "research"
	StageWrite    StageKind = "write"
	StageEdit     StageKind = "edit"
)

// StageSpec holds rendered instructions plus the advisory completion criterion.
type StageSpec struct {
	Kind           StageKind
	Instructions   string
	ExpectedOutput string
}

// Step binds a stage to the role that executes it.
type Step struct {
	Role  RoleSpec
	Stage StageSpec
}

// PipelineResult 是整条链路的最终产出（Markdown）。
type PipelineResult struct {
	FinalText string `json:"final_text"`
	Title     string `json:"title"`
	Digest    string `json:"digest"`
}
