package watermark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/orderlake/pkg/models"
)

type stateDocument struct {
	ID      string `bson:"_id"`
	LastRun string `bson:"last_run"`
}

// MongoStore keeps the state record as one document. ReplaceOne swaps the
// whole document atomically.
type MongoStore struct {
	coll *mongo.Collection
	id   string
}

func NewMongoStore(client *mongo.Client, database, collection, id string) *MongoStore {
	return &MongoStore{
		coll: client.Database(database).Collection(collection),
		id:   id,
	}
}

func (s *MongoStore) Load(ctx context.Context) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var doc stateDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": s.id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Epoch, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read state %q: %w", s.id, err)
	}

	wm, err := models.PipelineState{LastRun: doc.LastRun}.Watermark()
	if err != nil {
		return time.Time{}, fmt.Errorf("state %q: %w", s.id, err)
	}
	return wm, nil
}

func (s *MongoStore) Save(ctx context.Context, wm time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	doc := stateDocument{ID: s.id, LastRun: models.NewPipelineState(wm).LastRun}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": s.id}, doc, opts); err != nil {
		return fmt.Errorf("failed to write state %q: %w", s.id, err)
	}
	return nil
}
