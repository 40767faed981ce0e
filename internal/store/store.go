// Package store holds the admin user directory backends.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/backoffice/internal/model"
)

// Directory is the admin user directory as used by the service: recipient
// lookup, first-admin seeding and health checks.
type Directory interface {
	ListNotifiable(ctx context.Context) ([]model.AdminUser, error)
	CountAll(ctx context.Context) (int, error)
	Create(ctx context.Context, u model.AdminUser, passwordHash string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Backend returns "postgres" or "mongo" for a supported DATABASE_URL.
func Backend(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mongodb", "mongodb+srv":
		return "mongo", nil
	}
	return "", fmt.Errorf("unsupported database url scheme %q", u.Scheme)
}

// Open connects to the directory named by databaseURL and prepares its
// schema: migrations for PostgreSQL, indexes for MongoDB.
func Open(ctx context.Context, databaseURL, mongoDatabase string) (Directory, error) {
	backend, err := Backend(databaseURL)
	if err != nil {
		return nil, err
	}
	if backend == "mongo" {
		return openMongo(ctx, databaseURL, mongoDatabase)
	}
	return openPostgres(ctx, databaseURL)
}

func openPostgres(ctx context.Context, databaseURL string) (*PostgresDirectory, error) {
	db, err := OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresDirectory(db), nil
}

// OpenPostgres opens and pings a pgx-backed *sql.DB.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func openMongo(ctx context.Context, databaseURL, database string) (*MongoDirectory, error) {
	dir, err := OpenMongo(ctx, databaseURL, database)
	if err != nil {
		return nil, err
	}
	if err := dir.EnsureIndexes(ctx); err != nil {
		_ = dir.Close(ctx)
		return nil, err
	}
	return dir, nil
}

// OpenMongo connects to MongoDB and returns a directory over the users
// collection of database.
func OpenMongo(ctx context.Context, databaseURL, database string) (*MongoDirectory, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoDirectory(client.Database(database).Collection(UsersCollection)), nil
}
