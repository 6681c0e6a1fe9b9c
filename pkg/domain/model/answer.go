package model

// AnswerResult is the synthesized, cited answer returned to the caller.
// Confidence is carried through from the retrieval ranker; the generative
// model has no reliable self-reported confidence and is never asked for one.
type AnswerResult struct {
	Text       string `masq:"secret"`
	Sources    []*RetrievedMatch
	Confidence float64
}
