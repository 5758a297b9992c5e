package datastore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type blobDocument struct {
	Name     string    `bson:"_id"`
	Data     []byte    `bson:"data"`
	Modified time.Time `bson:"modified"`
}

type MongoStore struct {
	Collection *mongo.Collection
}

func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{Collection: collection}
}

func (m *MongoStore) Get(ctx context.Context, name string) ([]byte, error) {
	var document blobDocument
	err := m.Collection.FindOne(ctx, bson.M{"_id": name}).Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return document.Data, nil
}

func (m *MongoStore) Put(ctx context.Context, name string, data []byte) error {
	document := blobDocument{Name: name, Data: data, Modified: time.Now()}
	_, err := m.Collection.ReplaceOne(ctx, bson.M{"_id": name}, document, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoStore) Delete(ctx context.Context, name string) error {
	_, err := m.Collection.DeleteOne(ctx, bson.M{"_id": name})
	return err
}

func (m *MongoStore) Exists(ctx context.Context, name string) (bool, error) {
	count, err := m.Collection.CountDocuments(ctx, bson.M{"_id": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
