package datastore

import (
	"fmt"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/database"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

// New connects the backend named by kind
func New(kind string, directory string) (Store, error) {
	log.Debug().Str("backend", kind).Msg("Setting up data store")

	switch kind {
	case "", "file":
		return NewFileStore(directory)
	case "redis":
		if redis_client.Client == nil {
			if err := redis_client.Connect(); err != nil {
				return nil, err
			}
		}
		return NewRedisStore(redis_client.Client, "hkbuseta:store:"), nil
	case "mongo":
		if database.MongoGlobalInstance == nil {
			if err := database.Connect(); err != nil {
				return nil, err
			}
		}
		return NewMongoStore(database.GetCollection(database.BlobsCollection)), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", kind)
}
