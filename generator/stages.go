package generator

import (
	"fmt"
	"strings"
)

// FinalMarkdownDirective is the editor's closing instruction.
const FinalMarkdownDirective = "Return ONLY the final Markdown. No preamble, no notes, no meta-commentary."

// BuildStages renders the research, write and edit instructions for req. It
// does not validate req; NewPipeline does.
func BuildStages(req RunRequest) [3]StageSpec {
	return [3]StageSpec{
		researchStage(req),
		writeStage(req),
		editStage(req),
	}
}

func researchStage(req RunRequest) StageSpec {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Research the topic: '%s'.\n", req.Topic))
	sb.WriteString(fmt.Sprintf("Target audience: %s\n", req.Audience))
	sb.WriteString(fmt.Sprintf("Tone: %s\n", req.Tone))
	sb.WriteString(fmt.Sprintf("Language: %s\n\n", req.Language))
	sb.WriteString("Deliver a structured brief:\n")
	sb.WriteString("1) 5–10 key points (facts/insights)\n")
	sb.WriteString(fmt.Sprintf("2) At least %d credible sources with URLs\n", req.NumSources))
	sb.WriteString("3) Suggested outline (H1/H2)\n")
	sb.WriteString("4) Any important caveats/limitations\n")
	sb.WriteString(fmt.Sprintf("Write the brief in %s. Keep sources and URLs exactly as found.\n", req.Language))
	return StageSpec{
		Kind:         StageResearch,
		Instructions: sb.String(),
		ExpectedOutput: fmt.Sprintf(
			"A research brief with bullet points, outline, and a list of at least %d sources with URLs.", req.NumSources),
	}
}

func writeStage(req RunRequest) StageSpec {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a Markdown article about '%s' using the research brief.\n", req.Topic))
	sb.WriteString(fmt.Sprintf("Target audience: %s\n", req.Audience))
	sb.WriteString(fmt.Sprintf("Tone: %s\n", req.Tone))
	sb.WriteString("Constraints:\n")
	sb.WriteString(fmt.Sprintf("- %d–%d words\n", req.WordCountMin, req.WordCountMax))
	sb.WriteString("- Use Markdown headings (H1, H2)\n")
	sb.WriteString("- Include a short intro and conclusion\n")
	sb.WriteString("- If you mention numbers/claims, rely on the sources from the research brief\n")
	sb.WriteString("- Keep it readable and practical\n")
	sb.WriteString(fmt.Sprintf("- Write in %s\n", req.Language))
	return StageSpec{
		Kind:         StageWrite,
		Instructions: sb.String(),
		ExpectedOutput: fmt.Sprintf(
			"A complete Markdown article between %d and %d words.", req.WordCountMin, req.WordCountMax),
	}
}

func editStage(req RunRequest) StageSpec {
	var sb strings.Builder
	sb.WriteString("Edit the article to be publish-ready:\n")
	sb.WriteString("- Improve clarity and structure\n")
	sb.WriteString("- Fix grammar and style\n")
	sb.WriteString("- Remove repetition\n")
	sb.WriteString(fmt.Sprintf("- Ensure the article stays within %d–%d words\n", req.WordCountMin, req.WordCountMax))
	sb.WriteString("- Keep citations/links\n")
	sb.WriteString(fmt.Sprintf("- Ensure the final output is entirely in %s (translate any leftovers)\n", req.Language))
	sb.WriteString(FinalMarkdownDirective)
	return StageSpec{
		Kind:           StageEdit,
		Instructions:   sb.String(),
		ExpectedOutput: "A polished, publish-ready Markdown article.",
	}
}
