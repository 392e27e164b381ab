package model

// Classification values for a single comparison outcome
const (
	ClassIdentical  = "IDENTICAL"
	ClassSimilar    = "SIMILAR"
	ClassNotPresent = "NOT_PRESENT"
	ClassError      = "ERROR"
)

// Difference is one side-by-side divergence inside a SIMILAR match
type Difference struct {
	Aspect string `json:"aspect"`
	Ours   string `json:"ours"`
	Theirs string `json:"theirs"`
}

// Match is one located correspondence between a clause and a document section
type Match struct {
	Type         string       `json:"type"`
	AspectLabel  string       `json:"aspect_label,omitempty"`
	Page         *int         `json:"page,omitempty"`
	Section      string       `json:"section,omitempty"`
	SectionTitle string       `json:"section_title,omitempty"`
	Paragraph    *int         `json:"paragraph,omitempty"`
	FullText     string       `json:"full_text,omitempty"`
	Differences  []Difference `json:"differences,omitempty"`
	LegalNote    string       `json:"legal_note,omitempty"`
}

// Result is the structured outcome of one (clause, document) comparison.
// Produced exactly once per task and never mutated afterwards.
type Result struct {
	Classification string  `json:"classification"`
	Summary        string  `json:"summary"`
	Matches        []Match `json:"matches"`
	Analysis       string  `json:"analysis,omitempty"`
	Error          string  `json:"error,omitempty"`
	DocumentName   string  `json:"document_name"`
	Clause         string  `json:"clause"`
}

// TruncateClause shortens a clause for echoing on results and progress lines
func TruncateClause(clause string) string {
	runes := []rune(clause)
	if len(runes) <= 100 {
		return clause
	}
	return string(runes[:100]) + "…"
}

// ErrorResult builds the ERROR-classified result used whenever a task
// cannot produce a real comparison (load failure, API failure, bad output).
func ErrorResult(clause, documentName, summary, analysis, errMsg string) Result {
	return Result{
		Classification: ClassError,
		Summary:        summary,
		Matches:        []Match{},
		Analysis:       analysis,
		Error:          errMsg,
		DocumentName:   documentName,
		Clause:         TruncateClause(clause),
	}
}
