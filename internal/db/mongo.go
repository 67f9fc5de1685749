package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// OpenMongo connects to uri and returns the named database. Caller must Disconnect the client when done.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	if uri == "" {
		return nil, errors.New("db: MONGO_URI is empty")
	}
	if database == "" {
		return nil, errors.New("db: MONGO_DATABASE is empty")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(database), nil
}
