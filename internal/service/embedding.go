package service

import (
	"context"
	"fmt"

	"github.com/ledgerworks/rfpd/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingEntryRepository defines the repository interface for embedding operations
type EmbeddingEntryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores entry embeddings. Called by the
// background worker that drains the embedding job queue.
type EmbeddingService struct {
	client EmbeddingClient
	repo   EmbeddingEntryRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingEntryRepository) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		repo:   repo,
	}
}

// GenerateEmbedding generates and stores an embedding for the given entry ID.
// The embedded text is the same question+answer+tags document the match
// index uses.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, entryID string) error {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, entry.IndexText())
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, entryID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}
