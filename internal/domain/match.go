package domain

// MatchType tags how a match was found.
type MatchType string

const (
	// MatchTypeExact means the normalized query equals (or mutually
	// contains) the entry's canonical question.
	MatchTypeExact MatchType = "exact"
	// MatchTypeSemantic means the match cleared the vector-space
	// similarity threshold without being exact.
	MatchTypeSemantic MatchType = "semantic"
)

// Match is a single ranked result from the knowledge matcher.
type Match struct {
	EntryID    string
	Question   string
	Answer     string
	Category   string
	Tags       []string
	Confidence float64
	Type       MatchType
}

// AnswerSource tags where an assembled answer came from.
type AnswerSource string

const (
	AnswerSourceKnowledgeBase AnswerSource = "knowledge_base"
	AnswerSourceAI            AnswerSource = "ai"
	AnswerSourceNone          AnswerSource = "none"
)

// Answer match types beyond the matcher's own exact/semantic.
const (
	MatchTypeAIGenerated MatchType = "ai_generated"
	MatchTypeNoAnswer    MatchType = "no_answer"
)

// Answer is the assembled response for one incoming question: the text
// returned to the caller plus provenance for auditing.
type Answer struct {
	Question       string
	Answer         string
	Confidence     float64
	SourceEntryID  string
	SourceQuestion string
	MatchType      MatchType
	Source         AnswerSource
	SourceLabel    string
}
