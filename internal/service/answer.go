package service

import (
	"context"
	"strings"
	"time"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/extractor"
	"github.com/ledgerworks/rfpd/internal/telemetry"
)

const (
	// defaultMinConfidence is the standard search threshold.
	defaultMinConfidence = 0.1
	// broaderMinConfidence is the relaxed threshold tried before giving
	// up on the knowledge base.
	broaderMinConfidence = 0.05
	// aiAnswerConfidence is the fixed confidence reported for generated
	// answers.
	aiAnswerConfidence = 0.8

	noAnswerText = "No answer found in knowledge base for this question."
)

// AnswerGenerator produces a generated answer for a question the
// knowledge base cannot cover. Implemented by the OpenAI client.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string) (string, error)
}

// AIQuestionExtractor is the advanced extraction stage: a model call
// that pulls question strings out of raw text. Optional; the heuristic
// extractor is the fallback.
type AIQuestionExtractor interface {
	ExtractQuestions(ctx context.Context, text string) ([]string, error)
}

// KnowledgeSearcher is the slice of KnowledgeService the answer flow
// needs.
type KnowledgeSearcher interface {
	Search(ctx context.Context, orgID, question string, minConfidence float64) ([]domain.Match, error)
}

// QueryLogRepository persists answered questions for auditing. Optional.
type QueryLogRepository interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
}

// QueryLogEntry captures one answered question and its outcome.
type QueryLogEntry struct {
	OrgID      string
	Question   string
	Source     domain.AnswerSource
	MatchType  domain.MatchType
	Confidence float64
	DurationMs int
}

// AnswerService assembles answers for incoming questions: knowledge-base
// search first, a broader low-threshold retry, then the generative
// fallback, and finally an explicit no-answer result.
type AnswerService struct {
	searcher      KnowledgeSearcher
	generator     AnswerGenerator
	aiExtractor   AIQuestionExtractor
	queryLog      QueryLogRepository
	minConfidence float64
}

// NewAnswerService creates a new AnswerService. generator, aiExtractor
// and queryLog may be nil; the service degrades to heuristics-only
// extraction and no-answer results.
func NewAnswerService(
	searcher KnowledgeSearcher,
	generator AnswerGenerator,
	aiExtractor AIQuestionExtractor,
	queryLog QueryLogRepository,
) *AnswerService {
	return NewAnswerServiceWithMinConfidence(searcher, generator, aiExtractor, queryLog, defaultMinConfidence)
}

// NewAnswerServiceWithMinConfidence creates an AnswerService with a
// custom search threshold. Values outside [0, 1] are clamped; zero
// falls back to the default.
func NewAnswerServiceWithMinConfidence(
	searcher KnowledgeSearcher,
	generator AnswerGenerator,
	aiExtractor AIQuestionExtractor,
	queryLog QueryLogRepository,
	minConfidence float64,
) *AnswerService {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	if minConfidence > 1 {
		minConfidence = 1
	}
	return &AnswerService{
		searcher:      searcher,
		generator:     generator,
		aiExtractor:   aiExtractor,
		queryLog:      queryLog,
		minConfidence: minConfidence,
	}
}

// AnswerQuestion resolves a single question. The knowledge base always
// wins when it has anything at or above the threshold; the generative
// fallback only runs when both search passes come back empty and the
// question looks like one a model can usefully answer.
func (s *AnswerService) AnswerQuestion(ctx context.Context, orgID, question string) (*domain.Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.AnswerQuestion", telemetry.SpanAttributes{
		OrgID:     orgID,
		Operation: "answer",
	})
	defer span.End()

	started := time.Now()

	matches, err := s.searcher.Search(ctx, orgID, question, s.minConfidence)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		best := matches[0]
		label := "KB Similar"
		if best.Type == domain.MatchTypeExact {
			label = "KB Match"
		}
		return s.logged(ctx, orgID, started, &domain.Answer{
			Question:       question,
			Answer:         best.Answer,
			Confidence:     best.Confidence,
			SourceEntryID:  best.EntryID,
			SourceQuestion: best.Question,
			MatchType:      best.Type,
			Source:         domain.AnswerSourceKnowledgeBase,
			SourceLabel:    label,
		}), nil
	}

	broader, err := s.searcher.Search(ctx, orgID, question, broaderMinConfidence)
	if err != nil {
		return nil, err
	}
	if len(broader) > 0 {
		best := broader[0]
		return s.logged(ctx, orgID, started, &domain.Answer{
			Question:       question,
			Answer:         best.Answer,
			Confidence:     best.Confidence,
			SourceEntryID:  best.EntryID,
			SourceQuestion: best.Question,
			MatchType:      domain.MatchTypeSemantic,
			Source:         domain.AnswerSourceKnowledgeBase,
			SourceLabel:    "KB Similar",
		}), nil
	}

	if s.generator != nil && shouldUseAI(question) {
		text, err := s.generator.GenerateAnswer(ctx, question)
		if err != nil {
			// A failed generation degrades to no-answer rather than
			// failing the whole submission.
			telemetry.CaptureError(ctx, err)
		} else {
			return s.logged(ctx, orgID, started, &domain.Answer{
				Question:    question,
				Answer:      text,
				Confidence:  aiAnswerConfidence,
				MatchType:   domain.MatchTypeAIGenerated,
				Source:      domain.AnswerSourceAI,
				SourceLabel: "AI Generated",
			}), nil
		}
	}

	return s.logged(ctx, orgID, started, &domain.Answer{
		Question:    question,
		Answer:      noAnswerText,
		Confidence:  0,
		MatchType:   domain.MatchTypeNoAnswer,
		Source:      domain.AnswerSourceNone,
		SourceLabel: "No Answer",
	}), nil
}

// AnswerQuestions resolves a batch in order. One question's failure
// fails the batch; partial results are not returned.
func (s *AnswerService) AnswerQuestions(ctx context.Context, orgID string, questions []string) ([]*domain.Answer, error) {
	answers := make([]*domain.Answer, 0, len(questions))
	for _, q := range questions {
		a, err := s.AnswerQuestion(ctx, orgID, q)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, nil
}

// ExtractQuestions is the two-stage extraction pipeline: the model-based
// extractor when configured and successful, otherwise the heuristic
// extractor. Never fails; worst case it returns the heuristic result.
func (s *AnswerService) ExtractQuestions(ctx context.Context, text string) []string {
	if s.aiExtractor != nil {
		questions, err := s.aiExtractor.ExtractQuestions(ctx, text)
		if err == nil && len(questions) > 0 {
			return questions
		}
		if err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}
	return extractor.ExtractQuestions(text)
}

func (s *AnswerService) logged(ctx context.Context, orgID string, started time.Time, answer *domain.Answer) *domain.Answer {
	if s.queryLog != nil {
		entry := QueryLogEntry{
			OrgID:      orgID,
			Question:   answer.Question,
			Source:     answer.Source,
			MatchType:  answer.MatchType,
			Confidence: answer.Confidence,
			DurationMs: int(time.Since(started).Milliseconds()),
		}
		// Best effort; an audit-log failure must not fail the answer.
		if _, err := s.queryLog.CreateQueryLog(ctx, entry); err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}
	return answer
}

// Vocabulary for deciding whether a question with no knowledge-base
// match is worth sending to the model at all.
var (
	platformKeywords = []string{
		"solana", "blockchain", "crypto", "defi", "nft", "smart contract",
		"validator", "consensus", "transaction", "block", "network",
		"token", "wallet", "staking", "governance", "security",
		"scalability", "throughput", "latency", "fee", "cost",
		"developer", "sdk", "api", "documentation", "testnet",
		"mainnet", "rpc", "node", "bridge", "oracle",
	}

	technicalIndicators = []string{
		"how does", "how do", "what is", "what are", "how to",
		"can you", "does solana", "is solana", "will solana",
		"does the", "is the", "what the", "how the",
	}

	requestWords = []string{"please", "provide", "explain", "describe"}
)

func shouldUseAI(question string) bool {
	low := strings.ToLower(question)

	for _, kw := range platformKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}

	for _, ind := range technicalIndicators {
		if strings.Contains(low, ind) {
			return true
		}
	}

	// Long, specific asks are worth a generation attempt even without
	// domain vocabulary.
	if len(question) > 30 {
		if strings.Contains(question, "?") {
			return true
		}
		for _, w := range requestWords {
			if strings.Contains(low, w) {
				return true
			}
		}
	}

	return false
}
