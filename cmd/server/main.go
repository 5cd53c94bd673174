package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mstream "github.com/haowjy/meridian-stream-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"smartdoc/internal/auth"
	"smartdoc/internal/config"
	"smartdoc/internal/events"
	"smartdoc/internal/handler"
	"smartdoc/internal/handler/sse"
	"smartdoc/internal/middleware"
	"smartdoc/internal/observability"
	svcauth "smartdoc/internal/service/auth"
	serviceDocsys "smartdoc/internal/service/docsystem"
	"smartdoc/internal/service/docsystem/converter"
	"smartdoc/internal/service/generation"
	"smartdoc/internal/service/session"
)

// shutdownTimeout bounds the graceful shutdown after SIGINT/SIGTERM
const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	var logFile io.Writer
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	logger := config.NewLogger(cfg.Environment, logFile)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
		"generation_provider", cfg.GenerationProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.close()

	// Event broker: Redis fans events out across instances
	var broker events.Broker
	if cfg.RedisURL != "" {
		redisBroker, err := events.NewRedisBrokerFromURL(ctx, cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		broker = redisBroker
		logger.Info("event broker connected", "backend", "redis")
	} else {
		broker = events.NewMemoryBroker()
	}
	defer broker.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	// Document services
	authorizer := svcauth.NewOwnerBasedAuthorizer(store.documents, store.snapshots)
	serializer := serviceDocsys.NewContentSerializer()
	contentAnalyzer := serviceDocsys.NewContentAnalyzer()
	docService := serviceDocsys.NewDocumentService(
		store.documents,
		authorizer,
		serializer,
		converter.NewConverterRegistry(),
		contentAnalyzer,
		broker,
		logger,
	)
	versionService := serviceDocsys.NewVersionService(
		store.snapshots,
		docService,
		store.txManager,
		authorizer,
		serializer,
		broker,
		logger,
	)

	// Generation
	provider, err := generation.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to set up generation provider: %v", err)
	}
	streamRegistry := mstream.NewRegistry()
	go streamRegistry.StartCleanup(ctx)

	generationService := generation.NewService(generation.Config{
		DocRepo:    store.documents,
		Authorizer: authorizer,
		Serializer: serializer,
		Converter:  converter.NewMarkdownConverter(),
		Analyzer:   contentAnalyzer,
		Provider:   provider,
		Model:      cfg.GenerationModel(),
		Limiter:    rate.NewLimiter(rate.Limit(cfg.GenerationRate), cfg.GenerationRateBurst),
		Registry:   streamRegistry,
		Broker:     broker,
		Metrics:    metrics,
		Logger:     logger,
	})

	// Live editing sessions
	sessions := session.NewRegistry(session.RegistryConfig{
		Documents:  docService,
		Versions:   versionService,
		Generation: generationService,
		Serializer: serializer,
		Editor:     cfg.Editor,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err := sessions.StartReaper(); err != nil {
		log.Fatalf("Failed to start session reaper: %v", err)
	}

	logger.Info("services initialized")

	sseConfig := sse.DefaultConfig()
	sseConfig.IncludeIDs = cfg.Debug

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, &handler.Handlers{
		Health:    handler.NewHealthHandler(sessions.Len),
		Documents: handler.NewDocumentHandler(docService, generationService, broker, sseConfig, logger),
		Versions:  handler.NewVersionHandler(versionService, logger),
		Sessions:  handler.NewSessionHandler(sessions, serializer, sseConfig, logger),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestID → Recovery → Auth → Routes
	var h http.Handler = mux
	if cfg.AuthDisabled {
		logger.Warn("AUTH DISABLED: every request runs as the test user (NEVER use in production!)",
			"user_id", cfg.TestUserID)
		h = middleware.StaticUser(cfg.TestUserID)(h)
	} else {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		h = middleware.Auth(jwtVerifier, logger)(h)
	}
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestID(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	// Sessions flush pending edits before storage closes
	sessions.Shutdown(shutdownCtx)
	generationService.Wait()
	logger.Info("server stopped")
}
