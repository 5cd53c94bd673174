package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"smartdoc/internal/auth"
	"smartdoc/internal/config"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/repository/postgres"
	postgresDocsys "smartdoc/internal/repository/postgres/docsystem"
	svcauth "smartdoc/internal/service/auth"
	serviceDocsys "smartdoc/internal/service/docsystem"
	"smartdoc/internal/service/docsystem/converter"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed documents")
	clearData := flag.Bool("clear-data", false, "Clear the seed user's documents (keep schema)")
	userEmail := flag.String("user-email", "", "Create (or reuse) this Supabase user and seed its documents; needs SUPABASE_SERVICE_KEY")
	userPassword := flag.String("user-password", "smartdoc-dev", "Password for a user created with --user-email")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: --drop-tables and --clear-data are not allowed in production")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	log.Printf("Environment: %s, table prefix: %s", cfg.Environment, cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping tables...")
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	if *schemaOnly {
		log.Println("Schema ready (schema-only mode)")
		return
	}

	userID := cfg.TestUserID
	if *userEmail != "" {
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			log.Fatalf("--user-email needs SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
		admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
		userID, err = admin.EnsureUser(ctx, *userEmail, *userPassword)
		if err != nil {
			log.Fatalf("Failed to ensure seed user: %v", err)
		}
		log.Printf("Seeding as %s (user %s)", *userEmail, userID)
	}

	removed, err := postgres.ClearUserData(ctx, pool, tables, userID)
	if err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	log.Printf("Cleared %d existing documents", removed)
	if *clearData {
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresDocsys.NewDocumentRepository(repoConfig)
	snapRepo := postgresDocsys.NewSnapshotRepository(repoConfig)
	authorizer := svcauth.NewOwnerBasedAuthorizer(docRepo, snapRepo)
	serializer := serviceDocsys.NewContentSerializer()

	docService := serviceDocsys.NewDocumentService(docRepo, authorizer, serializer,
		converter.NewConverterRegistry(), serviceDocsys.NewContentAnalyzer(), nil, logger)
	versionService := serviceDocsys.NewVersionService(snapRepo, docService,
		postgres.NewTransactionManager(pool, logger), authorizer, serializer, nil, logger)

	seeder := &seeder{userID: userID, docs: docService, versions: versionService}
	if err := seeder.run(ctx, seedDocuments()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}

type seeder struct {
	userID   string
	docs     docsysSvc.DocumentService
	versions docsysSvc.VersionService
}

func (s *seeder) run(ctx context.Context, documents []seedDocument) error {
	for i, seed := range documents {
		doc, err := s.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
			UserID: s.userID,
			Title:  seed.title,
		})
		if err != nil {
			return err
		}

		// Pending documents are left for the editor to generate
		if len(seed.drafts) == 0 {
			log.Printf("Created document %d/%d: %s (pending)", i+1, len(documents), seed.title)
			continue
		}

		for _, draft := range seed.drafts {
			doc, err = s.docs.ImportContent(ctx, &docsysSvc.ImportContentRequest{
				UserID:     s.userID,
				DocumentID: doc.ID,
				Filename:   seed.filename,
				Data:       []byte(draft.body),
			})
			if err != nil {
				return err
			}
			if _, err := s.versions.CreateSnapshot(ctx, &docsysSvc.CreateSnapshotRequest{
				UserID:     s.userID,
				DocumentID: doc.ID,
				Name:       draft.name,
				Content:    doc.Content,
			}); err != nil {
				return err
			}
		}

		log.Printf("Created document %d/%d: %s (ID: %s, words: %d, versions: %d)",
			i+1, len(documents), seed.title, doc.ID, doc.WordCount, len(seed.drafts))
	}
	return nil
}
