package synthesis

// Exposed for tests
var (
	BuildUserPrompt = buildUserPrompt
	CitedSubset     = citedSubset
	Classify        = classify
)

const SnippetCharLimit = snippetCharLimit
