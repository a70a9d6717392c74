// Command sweeper runs one orphan reconciliation pass and exits. Intended to
// be scheduled by external cron when the long-running API process is not the
// right home for the background loop.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/artifold/service/internal/artifact"
	"github.com/artifold/service/internal/config"
	"github.com/artifold/service/internal/db"
	"github.com/artifold/service/internal/media"
	"github.com/artifold/service/internal/storage"
	"github.com/artifold/service/internal/workflow"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

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

	sweeper := media.NewSweeper(store, paths,
		media.NewReferenceIndex(artifact.NewRepository(pool), workflow.NewRepository(pool)),
		media.SweepConfig{
			GraceWindow: cfg.SweepGraceWindow,
			BatchSize:   cfg.SweepBatchSize,
			Prefixes:    cfg.SweepPrefixes,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		log.Fatalf("sweep aborted after deleting %d objects: %v", n, err)
	}
	log.Printf("sweep completed, %d orphaned objects deleted", n)
}
