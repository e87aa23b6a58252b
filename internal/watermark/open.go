package watermark

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/BartekS5/orderlake/pkg/database"
)

const (
	defaultMongoDatabase = "orderlake"
	mongoCollection      = "pipeline_state"
)

// Store is implemented by FileStore and MongoStore.
type Store interface {
	Load(ctx context.Context) (time.Time, error)
	Save(ctx context.Context, wm time.Time) error
}

// Open picks a backend from location: a mongodb:// or mongodb+srv:// URI
// selects MongoStore (database taken from the URI path), anything else is a
// file path. stateID names the record inside a shared collection. The
// returned close function releases the backend.
func Open(ctx context.Context, location, stateID string) (Store, func(), error) {
	if !strings.HasPrefix(location, "mongodb://") && !strings.HasPrefix(location, "mongodb+srv://") {
		return NewFileStore(location), func() {}, nil
	}

	client, err := database.ConnectMongo(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return NewMongoStore(client, mongoDatabase(location), mongoCollection, stateID), closeFn, nil
}

func mongoDatabase(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return defaultMongoDatabase
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db
	}
	return defaultMongoDatabase
}
