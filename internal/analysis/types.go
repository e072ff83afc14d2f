package analysis

// JSON tags follow the wire format the frontend consumes (camelCase).

// RiskLevel values emitted by clause extraction.
const (
	RiskNone       = "No Risk"
	RiskNegligible = "Negligible"
	RiskLow        = "Low"
	RiskMedium     = "Medium"
	RiskHigh       = "High"
)

// ClauseFinding is one extracted clause with its risk assessment.
type ClauseFinding struct {
	ClauseText            string `json:"clauseText"`
	SimplifiedExplanation string `json:"simplifiedExplanation"`
	RiskLevel             string `json:"riskLevel"`
	RiskReason            string `json:"riskReason"`
	NegotiationSuggestion string `json:"negotiationSuggestion"`
	SuggestedRewrite      string `json:"suggestedRewrite,omitempty"`
}

// KeyTerm is a legal or business term with a plain-language definition.
type KeyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// KeyDate is a date, deadline or time period found in the document.
type KeyDate struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// MissingClause is a clause the document should probably contain but does not.
type MissingClause struct {
	ClauseName string `json:"clauseName"`
	Reason     string `json:"reason"`
}

// ChunkSummary is a short gloss of one input chunk. ChunkIndex is 1-based.
type ChunkSummary struct {
	ChunkIndex int    `json:"chunkIndex"`
	Summary    string `json:"summary"`
}

// Report is the terminal artifact of the analysis pipeline. ChunkSummaries
// always has exactly one entry per input chunk; Clauses is never empty for a
// successful run.
type Report struct {
	Summary        string          `json:"summary"`
	Clauses        []ClauseFinding `json:"clauses"`
	KeyTerms       []KeyTerm       `json:"keyTerms"`
	KeyDates       []KeyDate       `json:"keyDates"`
	MissingClauses []MissingClause `json:"missingClauses"`
	ChunkSummaries []ChunkSummary  `json:"chunkSummaries"`
}
