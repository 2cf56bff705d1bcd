package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerworks/rfpd/internal/domain"
)

type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
}

type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// DocumentService keeps the original uploaded RFP files in object
// storage for auditing: clients upload via presigned URL, register the
// upload, and fetch presigned download links later.
type DocumentService struct {
	documentRepo  DocumentRepositoryInterface
	storageClient StorageClientInterface
	uuidGen       UUIDGenerator
	txRunner      TxRunner
}

func NewDocumentService(documentRepo DocumentRepositoryInterface, storageClient StorageClientInterface) *DocumentService {
	return &DocumentService{
		documentRepo:  documentRepo,
		storageClient: storageClient,
		uuidGen:       &DefaultUUIDGenerator{},
	}
}

func NewDocumentServiceWithTx(documentRepo DocumentRepositoryInterface, storageClient StorageClientInterface, txRunner TxRunner) *DocumentService {
	return &DocumentService{
		documentRepo:  documentRepo,
		storageClient: storageClient,
		uuidGen:       &DefaultUUIDGenerator{},
		txRunner:      txRunner,
	}
}

func NewDocumentServiceWithUUIDGen(
	documentRepo DocumentRepositoryInterface,
	storageClient StorageClientInterface,
	uuidGen UUIDGenerator,
) *DocumentService {
	return &DocumentService{
		documentRepo:  documentRepo,
		storageClient: storageClient,
		uuidGen:       uuidGen,
	}
}

type InitUploadInput struct {
	OrgID       string
	Filename    string
	ContentType string
}

type InitUploadResult struct {
	DocumentID string
	StorageKey string
	UploadURL  string
}

// InitUpload allocates a document ID and returns a presigned PUT URL.
func (s *DocumentService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	documentID := s.uuidGen.NewString()

	storageKey := buildStorageKey(input.OrgID, documentID, input.Filename)

	uploadURL, err := s.storageClient.GenerateUploadURL(ctx, storageKey, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitUploadResult{
		DocumentID: documentID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
	}, nil
}

type RegisterUploadInput struct {
	DocumentID   string
	OrgID        string
	SubmissionID string
	Filename     string
	ContentType  string
	StorageKey   string
	SHA256       string
}

// RegisterUpload verifies the object landed in storage and records the
// document.
func (s *DocumentService) RegisterUpload(ctx context.Context, input RegisterUploadInput) (*domain.Document, error) {
	_, err := s.storageClient.HeadObject(ctx, input.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to verify uploaded file: %w", err)
	}

	doc := &domain.Document{
		ID:           input.DocumentID,
		OrgID:        input.OrgID,
		SubmissionID: input.SubmissionID,
		Filename:     input.Filename,
		MimeType:     input.ContentType,
		SHA256:       input.SHA256,
		StorageKey:   input.StorageKey,
		CreatedAt:    time.Now().UTC(),
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if s.txRunner != nil {
		if err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			return repos.Documents().Create(ctx, doc)
		}); err != nil {
			return nil, err
		}
		return doc, nil
	}

	if err := s.documentRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	return doc, nil
}

func (s *DocumentService) GetDownloadURL(ctx context.Context, documentID string) (string, error) {
	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}

	url, err := s.storageClient.GenerateDownloadURL(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return url, nil
}

func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.storageClient.DeleteObject(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("failed to delete from storage: %w", err)
	}

	if err := s.documentRepo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	return nil
}

func (s *DocumentService) GetByID(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.documentRepo.GetByID(ctx, documentID)
}

func buildStorageKey(orgID, documentID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", orgID, documentID, filename)
}
