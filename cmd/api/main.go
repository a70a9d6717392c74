//	@title			Artifold API
//	@version		1.0
//	@description	Backend for Artifold — a platform where makers document builds and publish artifacts with media.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/artifold/service/internal/artifact"
	"github.com/artifold/service/internal/config"
	"github.com/artifold/service/internal/db"
	"github.com/artifold/service/internal/media"
	appMiddleware "github.com/artifold/service/internal/middleware"
	"github.com/artifold/service/internal/storage"
	"github.com/artifold/service/internal/user"
	"github.com/artifold/service/internal/workflow"

	_ "github.com/artifold/service/docs/swagger"
)

// entityOwners adapts the artifact and workflow repositories to the media
// package's owner-lookup capability.
type entityOwners struct {
	artifacts *artifact.Repository
	workflows *workflow.Repository
}

func (o *entityOwners) ArtifactOwner(ctx context.Context, artifactID int64) (string, error) {
	a, err := o.artifacts.GetByID(ctx, artifactID)
	if err != nil {
		return "", err
	}
	return a.OwnerID, nil
}

func (o *entityOwners) WorkflowOwner(ctx context.Context, workflowID int64) (string, error) {
	wf, err := o.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return "", err
	}
	return wf.OwnerID, nil
}

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	paths := media.Paths{
		PrivatePrefix: cfg.MediaPrivatePrefix,
		PublicPrefix:  cfg.MediaPublicPrefix,
	}

	// Wire dependencies: repository → service → handler
	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	artifactRepo := artifact.NewRepository(pool)
	workflowRepo := workflow.NewRepository(pool)

	deriver := media.NewDeriver(store)
	promoter := media.NewPromoter(store, paths, deriver)

	uploadSvc := media.NewUploadService(store, paths, media.Limits{
		MaxImageBytes: cfg.MaxImageBytes,
		MaxAudioBytes: cfg.MaxAudioBytes,
	}, cfg.PresignTTL, &entityOwners{artifacts: artifactRepo, workflows: workflowRepo})
	mediaHandler := media.NewHandler(uploadSvc)

	artifactSvc := artifact.NewService(artifactRepo, promoter)
	artifactHandler := artifact.NewHandler(artifactSvc)

	sweeper := media.NewSweeper(store, paths,
		media.NewReferenceIndex(artifactRepo, workflowRepo),
		media.SweepConfig{
			GraceWindow: cfg.SweepGraceWindow,
			BatchSize:   cfg.SweepBatchSize,
			Prefixes:    cfg.SweepPrefixes,
		})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweeper.Run(sweepCtx, cfg.SweepInterval)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/ outside production
	if !cfg.IsProduction() {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetMe)
		})

		r.Route("/media", func(r chi.Router) {
			r.Post("/presign", mediaHandler.Presign)
			r.Delete("/upload", mediaHandler.DeleteUpload)
		})

		r.Route("/artifacts", func(r chi.Router) {
			r.Post("/{id}/publish", artifactHandler.Publish)
			r.Post("/{id}/unpublish", artifactHandler.Unpublish)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
