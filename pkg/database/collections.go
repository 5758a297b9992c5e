package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BlobsCollection = "blobs"

func CreateIndexes() {
	blobsCollection := GetCollection(BlobsCollection)
	blobsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "modified", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := blobsCollection.Indexes().CreateMany(context.Background(), blobsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
