package types

// QueryState represents a stage of the query lifecycle state machine.
//
// Received → Authorizing → (Denied | Embedding) → (EmbedFailed | Retrieving)
// → (RetrieveFailed | Ranking) → (NoContext | Synthesizing)
// → (SynthesisFailed | Completed)
type QueryState string

const (
	StateReceived        QueryState = "RECEIVED"
	StateAuthorizing     QueryState = "AUTHORIZING"
	StateDenied          QueryState = "DENIED"
	StateEmbedding       QueryState = "EMBEDDING"
	StateEmbedFailed     QueryState = "EMBED_FAILED"
	StateRetrieving      QueryState = "RETRIEVING"
	StateRetrieveFailed  QueryState = "RETRIEVE_FAILED"
	StateRanking         QueryState = "RANKING"
	StateNoContext       QueryState = "NO_CONTEXT"
	StateSynthesizing    QueryState = "SYNTHESIZING"
	StateSynthesisFailed QueryState = "SYNTHESIS_FAILED"
	StateCompleted       QueryState = "COMPLETED"
)

// queryTransitions is the closed set of legal state transitions.
var queryTransitions = map[QueryState][]QueryState{
	StateReceived:     {StateAuthorizing},
	StateAuthorizing:  {StateDenied, StateEmbedding},
	StateEmbedding:    {StateEmbedFailed, StateRetrieving},
	StateRetrieving:   {StateRetrieveFailed, StateRanking},
	StateRanking:      {StateNoContext, StateSynthesizing},
	StateSynthesizing: {StateSynthesisFailed, StateCompleted},
}

// IsTerminal reports whether the state ends the query lifecycle.
func (s QueryState) IsTerminal() bool {
	switch s {
	case StateDenied,
		StateEmbedFailed,
		StateRetrieveFailed,
		StateNoContext,
		StateSynthesisFailed,
		StateCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s QueryState) CanTransitionTo(next QueryState) bool {
	for _, t := range queryTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Outcome maps a terminal state to its audit outcome. Non-terminal states
// map to OutcomeFailed so an interrupted query is never recorded as a success.
func (s QueryState) Outcome() QueryOutcome {
	switch s {
	case StateCompleted:
		return OutcomeSuccess
	case StateDenied:
		return OutcomeDenied
	case StateNoContext, StateSynthesisFailed:
		return OutcomeDegraded
	default:
		return OutcomeFailed
	}
}

// String returns the string representation of the query state
func (s QueryState) String() string {
	return string(s)
}
