package redis_client

import (
	"context"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword

	env := util.GetEnvironmentVariables()

	if env["HKBUSETA_REDIS_ADDRESS"] != "" {
		address = env["HKBUSETA_REDIS_ADDRESS"]
	}

	if env["HKBUSETA_REDIS_PASSWORD"] != "" {
		password = env["HKBUSETA_REDIS_PASSWORD"]
	}

	database := util.EnvironmentInt(env, "HKBUSETA_REDIS_DATABASE", defaultDatabase)

	return ConnectClient(redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	}))
}

// ConnectClient installs an already configured client, opening the queue connection on top of it
func ConnectClient(client *redis.Client) error {
	statusCmd := client.Ping(context.Background())
	if err := statusCmd.Err(); err != nil {
		return err
	}

	queueConnection, err := rmq.OpenConnectionWithRedisClient("hkbuseta", client, nil)
	if err != nil {
		return err
	}

	Client = client
	QueueConnection = queueConnection

	return nil
}
