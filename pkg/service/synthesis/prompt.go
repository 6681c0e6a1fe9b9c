package synthesis

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/gollem"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
)

// snippetCharLimit bounds the prompt contribution of a single snippet so the
// total prompt size stays proportional to k.
const snippetCharLimit = 2000

const systemPrompt = `You are a clinical records assistant. Answer the clinician's question using ONLY the provided source snippets.

## Instructions:

1. Base every statement on the tagged sources. Do not use outside knowledge.
2. Cite sources positionally: mention [S1], [S2], ... inline where used, and list every used position in cited_sources.
3. If the sources do not answer the question, say so plainly instead of speculating.
4. Keep the answer concise and clinically precise.`

// buildUserPrompt tags each snippet [S1]..[Sn] with its record metadata so
// the generated answer can cite sources positionally.
func buildUserPrompt(question string, matches []*model.RetrievedMatch) string {
	var sb strings.Builder

	sb.WriteString("## Question:\n\n")
	sb.WriteString(question)
	sb.WriteString("\n\n## Sources:\n\n")

	for i, m := range matches {
		snippet := m.Snippet
		if len(snippet) > snippetCharLimit {
			snippet = snippet[:snippetCharLimit]
		}
		fmt.Fprintf(&sb, "[S%d] type=%s date=%s\n%s\n\n",
			i+1, m.RecordType, m.EffectiveDate.Format("2006-01-02"), snippet)
	}

	return sb.String()
}

// buildResponseSchema creates the JSON schema for structured output
func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "ClinicalAnswer",
		Description: "A grounded answer with positional source citations",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"answer": {
				Type:        gollem.TypeString,
				Description: "The answer to the clinician's question, grounded in the tagged sources",
			},
			"cited_sources": {
				Type:        gollem.TypeArray,
				Description: "1-based positions of the sources used in the answer",
				Items: &gollem.Parameter{
					Type: gollem.TypeInteger,
				},
			},
		},
		Required: []string{"answer", "cited_sources"},
	}
}
