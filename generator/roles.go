package generator

const (
	RoleResearcher = "Research Analyst"
	RoleWriter     = "Content Writer"
	RoleEditor     = "Senior Editor"
)

// BuildRoles returns fresh researcher, writer and editor descriptors. Only the
// researcher may receive web search, and only when useSearch is set. The
// search backend is not checked here; a missing provider surfaces when the
// research stage runs.
func BuildRoles(useSearch bool) [3]RoleSpec {
	var researcherCaps []Capability
	if useSearch {
		researcherCaps = []Capability{CapabilityWebSearch}
	}
	return [3]RoleSpec{
		{
			Name: RoleResearcher,
			Goal: "Find up-to-date, credible information and produce a structured brief with sources.",
			Persona: "You are a meticulous research analyst. You verify claims, prefer primary sources, " +
				"and provide links and short evidence snippets.",
			capabilities: researcherCaps,
		},
		{
			Name: RoleWriter,
			Goal: "Write a clear, engaging article in Markdown based on the provided brief.",
			Persona: "You are a strong writer who can explain complex topics simply, use a good structure " +
				"(H1/H2, bullets, examples), and keep within word limits.",
		},
		{
			Name: RoleEditor,
			Goal: "Polish the article: clarity, structure, correctness, style. Remove fluff. Keep citations intact.",
			Persona: "You are a senior editor. You improve readability, fix grammar, ensure the narrative flows, " +
				"and the final text is publish-ready.",
		},
	}
}
