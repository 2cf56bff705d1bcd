package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/rfpd/internal/api/handlers"
	"github.com/ledgerworks/rfpd/internal/config"
	"github.com/ledgerworks/rfpd/internal/database"
	"github.com/ledgerworks/rfpd/internal/docparse"
	"github.com/ledgerworks/rfpd/internal/domain"
	"github.com/ledgerworks/rfpd/internal/jobs"
	"github.com/ledgerworks/rfpd/internal/openai"
	"github.com/ledgerworks/rfpd/internal/repository"
	"github.com/ledgerworks/rfpd/internal/server"
	"github.com/ledgerworks/rfpd/internal/service"
	"github.com/ledgerworks/rfpd/internal/storage"
	"github.com/ledgerworks/rfpd/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the rfpd API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	entryRepo := repository.NewEntryRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	orgRepo := repository.NewOrgRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)

	if cfg.InitOrgName != "" {
		if err := bootstrapInitialOrg(ctx, cfg, orgRepo, apiKeyRepo); err != nil {
			return fmt.Errorf("failed to bootstrap initial org: %w", err)
		}
	}

	var storageClient service.StorageClientInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = &S3StorageAdapter{client: s3Client}
	}

	var aiClient *openai.Client
	if cfg.HasOpenAI() {
		aiClient = openai.NewClient(cfg.OpenAIAPIKey)
	}

	knowledgeSvc := service.NewKnowledgeService(entryRepo, embeddingJobRepo)

	var generator service.AnswerGenerator
	var aiExtractor service.AIQuestionExtractor
	if aiClient != nil {
		generator = aiClient
		aiExtractor = aiClient
	}
	answerSvc := service.NewAnswerServiceWithMinConfidence(knowledgeSvc, generator, aiExtractor, queryLogRepo, cfg.MinConfidence)

	submissionSvc := service.NewSubmissionService(submissionRepo, answerSvc, docparse.NewParser())

	var documentSvc handlers.DocumentService
	if storageClient != nil {
		documentSvc = service.NewDocumentService(documentRepo, storageClient)
	} else {
		documentSvc = &NoOpDocumentService{}
	}

	var vectorSvc handlers.VectorSearchService
	if aiClient != nil {
		vectorSvc = service.NewVectorSearchService(entryRepo, aiClient)
	} else {
		vectorSvc = &NoOpVectorSearchService{}
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(orgRepo, apiKeyRepo, uuidGen)

	var embeddingWorker *jobs.Worker
	if aiClient != nil {
		embeddingSvc := service.NewEmbeddingService(aiClient, entryRepo)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, time.Duration(cfg.EmbeddingPollSeconds)*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	submissionProcessor := jobs.NewSubmissionWorker(submissionRepo, submissionSvc)
	submissionWorker := jobs.NewWorker(submissionProcessor, time.Duration(cfg.SubmissionPollSeconds)*time.Second)
	go submissionWorker.Start(ctx)
	log.Println("submission worker started")

	routerCfg := server.RouterConfig{
		AuthValidator:       authSvc,
		EntryHandler:        handlers.NewEntryHandler(knowledgeSvc),
		AnswerHandler:       handlers.NewAnswerHandler(answerSvc),
		VectorSearchHandler: handlers.NewVectorSearchHandler(vectorSvc),
		SubmissionHandler:   handlers.NewSubmissionHandler(submissionSvc),
		DocumentHandler:     handlers.NewDocumentHandler(documentSvc),
		AuthHandler:         handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	submissionWorker.Stop()
	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *S3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *S3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

func (a *S3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}

type NoOpDocumentService struct{}

func (s *NoOpDocumentService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) RegisterUpload(ctx context.Context, input service.RegisterUploadInput) (*domain.Document, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) GetDownloadURL(ctx context.Context, documentID string) (string, error) {
	return "", fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) GetByID(ctx context.Context, documentID string) (*domain.Document, error) {
	return nil, fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

func (s *NoOpDocumentService) Delete(ctx context.Context, documentID string) error {
	return fmt.Errorf("document service not configured: S3_ENDPOINT required")
}

// NoOpVectorSearchService stands in when no OpenAI key is configured and
// query embeddings cannot be generated.
type NoOpVectorSearchService struct{}

func (s *NoOpVectorSearchService) Search(ctx context.Context, orgID, query string, limit int) ([]*service.VectorSearchResult, error) {
	return nil, fmt.Errorf("vector search not configured: OPENAI_API_KEY required")
}

func bootstrapInitialOrg(ctx context.Context, cfg *config.Config, orgRepo *repository.OrgRepository, apiKeyRepo *repository.APIKeyRepository) error {
	org, err := orgRepo.GetByName(ctx, cfg.InitOrgName)
	if err != nil && err != domain.ErrOrganizationNotFound {
		return fmt.Errorf("failed to check existing org: %w", err)
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(orgRepo, apiKeyRepo, uuidGen)

	if org == nil {
		org, err = authSvc.CreateOrg(ctx, cfg.InitOrgName)
		if err != nil {
			return fmt.Errorf("failed to create org: %w", err)
		}
		log.Printf("bootstrap: created organization '%s' (id: %s)", org.Name, org.ID)
	} else {
		log.Printf("bootstrap: organization '%s' already exists (id: %s)", org.Name, org.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid RFPD_INIT_API_KEY format (expected 'rfp_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, org.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate drives the database through database/sql
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
