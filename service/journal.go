package service

import (
	"blurrer/api/model"
	"blurrer/config"
	"context"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Journal records one entry per blur request.
type Journal interface {
	Record(ctx context.Context, entry model.JournalEntry) error
}

type MongoJournal struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoJournal(cfg config.Mongo) (*MongoJournal, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoJournal{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (j *MongoJournal) Record(ctx context.Context, entry model.JournalEntry) error {
	_, err := j.collection.InsertOne(ctx, entry)
	return err
}

func (j *MongoJournal) Close(ctx context.Context) error {
	return j.client.Disconnect(ctx)
}
