// internal/output/mongo.go

package output

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pricescout/pricescout/internal/extract"
)

// mongoWriter inserts record documents into one collection. Documents use
// the record's JSON field names plus an extractedAt timestamp.
type mongoWriter struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func newMongoWriter(uri, collection string) (*mongoWriter, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb output requires a connection uri")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &mongoWriter{
		client: client,
		coll:   client.Database(databaseFromURI(uri)).Collection(collection),
	}, nil
}

// databaseFromURI pulls the database name out of the connection URI,
// defaulting to "pricescout" when the URI names none.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "pricescout"
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return "pricescout"
	}
	return db
}

func (w *mongoWriter) Write(ctx context.Context, records []*extract.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, 0, len(records))
	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		doc := rec.Map()
		doc["extractedAt"] = now
		docs = append(docs, doc)
	}
	if _, err := w.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("inserting mongodb documents: %w", err)
	}
	return nil
}

func (w *mongoWriter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.client.Disconnect(ctx)
}
