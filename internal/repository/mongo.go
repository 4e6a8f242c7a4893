package repository

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned by updates that matched no document
	ErrNotFound = errors.New("document not found")
	// ErrConcurrentUpdate means the stored version moved on since the document was read
	ErrConcurrentUpdate = errors.New("document was modified concurrently")
)

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		slog.Warn("failed to create index", "collection", coll.Name(), "error", err)
	}
}
