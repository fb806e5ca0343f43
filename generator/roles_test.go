package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRolesSearchGrant(t *testing.T) {
	roles := BuildRoles(true)
	assert.Equal(t, RoleResearcher, roles[0].Name)
	assert.Equal(t, RoleWriter, roles[1].Name)
	assert.Equal(t, RoleEditor, roles[2].Name)

	assert.True(t, roles[0].Has(CapabilityWebSearch))
	assert.False(t, roles[1].Has(CapabilityWebSearch))
	assert.False(t, roles[2].Has(CapabilityWebSearch))

	for _, r := range BuildRoles(false) {
		assert.Empty(t, r.Capabilities(), r.Name)
	}
}

func TestBuildRolesReturnsFreshValues(t *testing.T) {
	a := BuildRoles(true)
	caps := a[0].Capabilities()
	caps[0] = "tampered"
	assert.True(t, a[0].Has(CapabilityWebSearch))

	b := BuildRoles(true)
	a[0].Goal = "changed"
	assert.NotEqual(t, a[0].Goal, b[0].Goal)
}

func TestBuildRolesEditorKeepsCitations(t *testing.T) {
	roles := BuildRoles(false)
	assert.Contains(t, roles[2].Goal, "Keep citations intact")
}

func TestBuildStagesRendersConstraints(t *testing.T) {
	req := validRequest()
	req.NumSources = 7
	req.WordCountMin = 600
	req.WordCountMax = 900
	req.Language = "Russian"
	stages := BuildStages(req)

	assert.Equal(t, StageResearch, stages[0].Kind)
	assert.Equal(t, StageWrite, stages[1].Kind)
	assert.Equal(t, StageEdit, stages[2].Kind)

	assert.Contains(t, stages[0].Instructions, "Research the topic: 'Space weather'")
	assert.Contains(t, stages[0].Instructions, "At least 7 credible sources")
	assert.Contains(t, stages[0].ExpectedOutput, "at least 7 sources")

	assert.Contains(t, stages[1].Instructions, "600–900 words")
	assert.Contains(t, stages[1].Instructions, "Write in Russian")
	assert.Contains(t, stages[1].ExpectedOutput, "between 600 and 900 words")

	assert.Contains(t, stages[2].Instructions, "600–900 words")
	assert.Contains(t, stages[2].Instructions, "entirely in Russian")
	assert.True(t, strings.HasSuffix(stages[2].Instructions, FinalMarkdownDirective))
}

func TestBuildStagePrompt(t *testing.T) {
	roles := BuildRoles(true)
	stages := BuildStages(validRequest())

	p := BuildStagePrompt(roles[1], stages[1], "the brief", nil)
	assert.True(t, strings.HasPrefix(p.System, "You are the "+RoleWriter))
	assert.Contains(t, p.System, roles[1].Persona)
	assert.Contains(t, p.System, "do not hand it off")
	assert.Contains(t, p.System, stages[1].ExpectedOutput)
	assert.NotContains(t, p.System, "available tools")
	require.True(t, strings.HasPrefix(p.User, stages[1].Instructions))
	assert.True(t, strings.HasSuffix(p.User, "Context from the previous step:\nthe brief"))

	first := BuildStagePrompt(roles[0], stages[0], "", []Tool{{Name: "web_search"}})
	assert.Equal(t, stages[0].Instructions, first.User)
	assert.Contains(t, first.System, "available tools")
}

func TestRunRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunRequest)
		want   string
	}{
		{"valid", func(*RunRequest) {}, ""},
		{"blank topic", func(r *RunRequest) { r.Topic = " \t" }, "topic is required"},
		{"blank language", func(r *RunRequest) { r.Language = "" }, "language is required"},
		{"zero min", func(r *RunRequest) { r.WordCountMin = 0 }, "word_count_min must be >= 1"},
		{"min above max", func(r *RunRequest) { r.WordCountMin = 2000 }, "must not exceed"},
		{"no sources", func(r *RunRequest) { r.NumSources = 0 }, "num_sources must be >= 1"},
		{"min equals max", func(r *RunRequest) { r.WordCountMin = r.WordCountMax }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
