package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcess(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  string
		wantTitle string
	}{
		{
			name:      "plain markdown",
			raw:       "\n\n# Title\n\nFirst paragraph.\n",
			wantText:  "# Title\n\nFirst paragraph.",
			wantTitle: "Title",
		},
		{
			name:      "markdown fence",
			raw:       "```markdown\n# Fenced\n\nBody\n```",
			wantText:  "# Fenced\n\nBody",
			wantTitle: "Fenced",
		},
		{
			name:      "bare fence",
			raw:       "```\n# Bare\n\nBody\n```\n",
			wantText:  "# Bare\n\nBody",
			wantTitle: "Bare",
		},
		{
			name:      "inner code block kept",
			raw:       "# Code\n\n```go\nfmt.Println()\n```",
			wantText:  "# Code\n\n```go\nfmt.Println()\n```",
			wantTitle: "Code",
		},
		{
			name:      "no heading",
			raw:       "Just text.",
			wantText:  "Just text.",
			wantTitle: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := PostProcess(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, res.FinalText)
			assert.Equal(t, tt.wantTitle, res.Title)
		})
	}
}

func TestPostProcessEmpty(t *testing.T) {
	for _, raw := range []string{"", "  \n\t", "```markdown\n\n```"} {
		_, err := PostProcess(raw)
		assert.ErrorIs(t, err, ErrEmptyOutput, "%q", raw)
	}
}

func TestPostProcessDigest(t *testing.T) {
	res, err := PostProcess("# Title\n## Sub\n\nКосмическая погода влияет на GPS.\n\nMore.")
	require.NoError(t, err)
	assert.Equal(t, "Космическая погода влияет на GPS.", res.Digest)

	long := "# " + strings.Repeat("я", 200)
	res, err = PostProcess(long)
	require.NoError(t, err)
	assert.Equal(t, 120, len([]rune(res.Digest)))
}
