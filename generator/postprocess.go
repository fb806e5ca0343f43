package generator

import (
	"regexp"
	"strings"
)

var (
	titleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	fenceRe = regexp.MustCompile("(?s)^```(?:markdown|md)?[ \t]*\n(.*)\n```$")
)

// PostProcess trims the editor's answer, unwraps a single enclosing Markdown
// code fence and extracts the title and digest.
func PostProcess(raw string) (PipelineResult, error) {
	md := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(md); m != nil {
		md = strings.TrimSpace(m[1])
	}
	if md == "" {
		return PipelineResult{}, ErrEmptyOutput
	}

	digest := extractDigest(md)
	if digest == "" {
		digest = defaultDigest(md, 120)
	}

	return PipelineResult{
		FinalText: md,
		Title:     extractTitle(md),
		Digest:    digest,
	}, nil
}

func extractTitle(md string) string {
	m := titleRe.FindStringSubmatch(md)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// 摘要取首段（去掉标题行）。
func extractDigest(md string) string {
	lines := strings.Split(md, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return trimmed
	}
	return ""
}

func defaultDigest(md string, limit int) string {
	joined := strings.Join(strings.Fields(md), " ")
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}
