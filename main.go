package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/auth"
	"github.com/promptwatch/promptwatch-engine/pkg/config"
	"github.com/promptwatch/promptwatch-engine/pkg/database"
	"github.com/promptwatch/promptwatch-engine/pkg/handlers"
	"github.com/promptwatch/promptwatch-engine/pkg/llm"
	"github.com/promptwatch/promptwatch-engine/pkg/logging"
	"github.com/promptwatch/promptwatch-engine/pkg/middleware"
	"github.com/promptwatch/promptwatch-engine/pkg/repositories"
	"github.com/promptwatch/promptwatch-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
	)

	ctx := context.Background()

	// Migrations run through database/sql; the pool below uses native pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, cfg.Database.ConnectionString(), 0)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, version probe caching disabled", zap.Error(err))
		redisClient = nil
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	workspaceMiddleware := handlers.WorkspaceMiddleware(database.WithWorkspaceContext(db, logger))

	factory := llm.NewClientFactory(&cfg.Providers, logger)

	templateRepo := repositories.NewTemplateRepository()
	versionRepo := repositories.NewVersionRepository()
	resultRepo := repositories.NewResultRepository()

	templateService := services.NewTemplateService(templateRepo, logger)
	versionService := services.NewVersionService(versionRepo, factory, redisClient, cfg.Redis.ProbeTTL, logger)
	runService := services.NewRunService(templateRepo, resultRepo, versionService, factory, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTemplatesHandler(templateService, versionService, logger).RegisterRoutes(mux, authMiddleware, workspaceMiddleware)
	handlers.NewRunsHandler(runService, logger).RegisterRoutes(mux, authMiddleware, workspaceMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	logger.Info("Starting promptwatch-engine",
		zap.String("port", cfg.Port),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(cfg.BindAddr+":"+cfg.Port, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
