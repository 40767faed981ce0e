package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/backoffice/internal/store"
)

func main() {
	_ = godotenv.Load()

	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, dbURL, *down); err != nil {
		log.Errorw("migration failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("migrations complete")
}

func run(ctx context.Context, dbURL string, down bool) error {
	backend, err := store.Backend(dbURL)
	if err != nil {
		return err
	}

	if backend == "mongo" {
		if down {
			return fmt.Errorf("rollback is not supported for MongoDB")
		}
		database := os.Getenv("MONGO_DATABASE")
		if database == "" {
			database = "backoffice"
		}
		dir, err := store.OpenMongo(ctx, dbURL, database)
		if err != nil {
			return err
		}
		defer dir.Close(ctx)
		return dir.EnsureIndexes(ctx)
	}

	db, err := store.OpenPostgres(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if down {
		return store.Rollback(db)
	}
	return store.Migrate(db)
}
