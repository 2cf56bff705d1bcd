package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/matcher"
	"github.com/ledgerworks/rfpd/internal/pagination"
	"github.com/ledgerworks/rfpd/internal/telemetry"
)

// duplicateThreshold is the confidence at which a new entry's question is
// considered a duplicate of an existing one and the add is rejected.
const duplicateThreshold = 0.8

// EntryRepositoryInterface defines the repository interface for knowledge entry persistence
type EntryRepositoryInterface interface {
	Create(ctx context.Context, e *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	ListActiveByOrg(ctx context.Context, orgID string) ([]*domain.Entry, error)
	ListByOrgWithCursor(ctx context.Context, orgID string, cursor *pagination.Cursor, limit int) (*EntryPageResult, error)
	Update(ctx context.Context, e *domain.Entry) error
	Delete(ctx context.Context, id string) error
}

type EntryPageResult struct {
	Items      []*domain.Entry
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeService owns the knowledge corpus: entry CRUD, the add-time
// duplicate check, JSON import, and the per-organization match index.
//
// Indexes are immutable snapshots (matcher.Index); every corpus mutation
// swaps in a freshly built index so concurrent searches observe either
// the old corpus or the new one in full, never a half-rebuilt state.
type KnowledgeService struct {
	entryRepo        EntryRepositoryInterface
	embeddingJobRepo EmbeddingJobRepositoryInterface
	uuidGen          UUIDGenerator

	indexMu sync.RWMutex
	indexes map[string]*matcher.Index
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(
	entryRepo EntryRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
) *KnowledgeService {
	return NewKnowledgeServiceWithUUIDGen(entryRepo, embeddingJobRepo, &DefaultUUIDGenerator{})
}

// NewKnowledgeServiceWithUUIDGen creates a new KnowledgeService with custom UUID generator (for testing)
func NewKnowledgeServiceWithUUIDGen(
	entryRepo EntryRepositoryInterface,
	embeddingJobRepo EmbeddingJobRepositoryInterface,
	uuidGen UUIDGenerator,
) *KnowledgeService {
	return &KnowledgeService{
		entryRepo:        entryRepo,
		embeddingJobRepo: embeddingJobRepo,
		uuidGen:          uuidGen,
		indexes:          make(map[string]*matcher.Index),
	}
}

// CreateEntryInput represents the input for creating a knowledge entry
type CreateEntryInput struct {
	OrgID     string
	Question  string
	Answer    string
	Category  string
	Tags      []string
	CreatedBy string
}

// UpdateEntryInput represents the input for updating a knowledge entry.
// Nil fields are left unchanged.
type UpdateEntryInput struct {
	EntryID    string
	Question   *string
	Answer     *string
	Category   *string
	Tags       []string
	ModifiedBy string
}

type ListEntriesInput struct {
	OrgID  string
	Cursor string
	Limit  int
}

type ListEntriesOutput struct {
	Items   []*domain.Entry
	Cursor  string
	HasMore bool
}

// CreateEntry adds a new entry to the corpus. The add is rejected with
// ErrSimilarEntryExists when the question matches an existing entry at
// confidence >= 0.8 (exact or semantic). On success an embedding job is
// queued and the org's index is rebuilt.
func (s *KnowledgeService) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.CreateEntry", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		Operation: "create",
	})
	defer span.End()

	dups, err := s.Search(ctx, input.OrgID, input.Question, duplicateThreshold)
	if err != nil {
		return nil, err
	}
	if len(dups) > 0 {
		return nil, domain.ErrSimilarEntryExists
	}

	now := time.Now().UTC()
	entry := domain.NewEntry(
		s.uuidGen.NewString(),
		input.OrgID,
		strings.TrimSpace(input.Question),
		strings.TrimSpace(input.Answer),
		input.Category,
		input.Tags,
		input.CreatedBy,
		now,
	)

	if err := domain.ValidateEntry(entry); err != nil {
		return nil, err
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.queueEmbeddingJob(ctx, entry.ID, now); err != nil {
		return nil, err
	}

	if _, err := s.RebuildIndex(ctx, input.OrgID); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetEntry retrieves a knowledge entry by ID
func (s *KnowledgeService) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "get",
	})
	defer span.End()

	return s.entryRepo.GetByID(ctx, id)
}

// UpdateEntry mutates an entry in place, queues a re-embedding job and
// rebuilds the org's index.
func (s *KnowledgeService) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.UpdateEntry", telemetry.SpanAttributes{
		EntryID:   input.EntryID,
		Operation: "update",
	})
	defer span.End()

	entry, err := s.entryRepo.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if !entry.Active {
		return nil, domain.ErrEntryInactive
	}

	now := time.Now().UTC()
	if input.Question != nil {
		entry.Question = strings.TrimSpace(*input.Question)
	}
	if input.Answer != nil {
		entry.Answer = strings.TrimSpace(*input.Answer)
	}
	if input.Category != nil {
		entry.Category = *input.Category
	}
	if input.Tags != nil {
		entry.Tags = input.Tags
	}
	entry.UpdatedAt = now
	entry.LastModifiedBy = input.ModifiedBy

	if err := domain.ValidateEntry(entry); err != nil {
		return nil, err
	}

	if err := s.entryRepo.Update(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.queueEmbeddingJob(ctx, entry.ID, now); err != nil {
		return nil, err
	}

	if _, err := s.RebuildIndex(ctx, entry.OrgID); err != nil {
		return nil, err
	}

	return entry, nil
}

// DeactivateEntry soft-deletes an entry: it stays in the database but is
// excluded from matching. Rebuilds the org's index.
func (s *KnowledgeService) DeactivateEntry(ctx context.Context, id, modifiedBy string) (*domain.Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.DeactivateEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "deactivate",
	})
	defer span.End()

	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entry.Active = false
	entry.UpdatedAt = time.Now().UTC()
	entry.LastModifiedBy = modifiedBy

	if err := s.entryRepo.Update(ctx, entry); err != nil {
		return nil, err
	}

	if _, err := s.RebuildIndex(ctx, entry.OrgID); err != nil {
		return nil, err
	}

	return entry, nil
}

// DeleteEntry hard-deletes an entry and rebuilds the org's index.
func (s *KnowledgeService) DeleteEntry(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.DeleteEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "delete",
	})
	defer span.End()

	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.entryRepo.Delete(ctx, id); err != nil {
		return err
	}

	_, err = s.RebuildIndex(ctx, entry.OrgID)
	return err
}

func (s *KnowledgeService) ListEntries(ctx context.Context, input ListEntriesInput) (*ListEntriesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ListEntries", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.entryRepo.ListByOrgWithCursor(ctx, input.OrgID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListEntriesOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Search runs the tiered matcher against the org's current index. The
// index is built lazily on first use.
func (s *KnowledgeService) Search(ctx context.Context, orgID, question string, minConfidence float64) ([]domain.Match, error) {
	idx, err := s.index(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return idx.Search(question, minConfidence), nil
}

// RebuildIndex recomputes the org's match index from the active entries
// and atomically swaps it in. Returns the number of indexed entries.
func (s *KnowledgeService) RebuildIndex(ctx context.Context, orgID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.RebuildIndex", telemetry.SpanAttributes{
		OrgID:     orgID,
		Operation: "rebuild_index",
	})
	defer span.End()

	entries, err := s.entryRepo.ListActiveByOrg(ctx, orgID)
	if err != nil {
		return 0, err
	}

	idx := matcher.BuildIndex(entries)

	s.indexMu.Lock()
	s.indexes[orgID] = idx
	s.indexMu.Unlock()

	return idx.Size(), nil
}

func (s *KnowledgeService) index(ctx context.Context, orgID string) (*matcher.Index, error) {
	s.indexMu.RLock()
	idx, ok := s.indexes[orgID]
	s.indexMu.RUnlock()
	if ok {
		return idx, nil
	}

	if _, err := s.RebuildIndex(ctx, orgID); err != nil {
		return nil, err
	}

	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.indexes[orgID], nil
}

func (s *KnowledgeService) queueEmbeddingJob(ctx context.Context, entryID string, now time.Time) error {
	if s.embeddingJobRepo == nil {
		return nil
	}
	job := domain.NewEmbeddingJob(s.uuidGen.NewString(), entryID, now)
	if err := s.embeddingJobRepo.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to queue embedding job: %w", err)
	}
	return nil
}

// importedEntry is the JSON import record shape: a flat array of Q/A
// pairs with optional category and tags.
type importedEntry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ImportResult summarizes a bulk JSON import.
type ImportResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// ImportJSON bulk-loads entries from a JSON array of question/answer
// records. Near-duplicates of existing entries are skipped rather than
// failing the whole import; records missing question or answer count as
// failed. The index is rebuilt once at the end.
func (s *KnowledgeService) ImportJSON(ctx context.Context, orgID string, data []byte, createdBy string) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ImportJSON", telemetry.SpanAttributes{
		OrgID:     orgID,
		Operation: "import",
	})
	defer span.End()

	var records []importedEntry
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid import payload", err)
	}

	result := &ImportResult{}
	for _, rec := range records {
		question := strings.TrimSpace(rec.Question)
		answer := strings.TrimSpace(rec.Answer)
		if question == "" || answer == "" {
			result.Failed++
			continue
		}

		dups, err := s.Search(ctx, orgID, question, duplicateThreshold)
		if err != nil {
			return nil, err
		}
		if len(dups) > 0 {
			result.Skipped++
			continue
		}

		now := time.Now().UTC()
		entry := domain.NewEntry(s.uuidGen.NewString(), orgID, question, answer, rec.Category, rec.Tags, createdBy, now)
		if err := s.entryRepo.Create(ctx, entry); err != nil {
			return nil, err
		}
		if err := s.queueEmbeddingJob(ctx, entry.ID, now); err != nil {
			return nil, err
		}

		// Rebuild per record so later records dedupe against earlier
		// ones in the same file.
		if _, err := s.RebuildIndex(ctx, orgID); err != nil {
			return nil, err
		}
		result.Imported++
	}

	if _, err := s.RebuildIndex(ctx, orgID); err != nil {
		return nil, err
	}

	return result, nil
}
