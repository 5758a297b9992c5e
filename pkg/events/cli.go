package events

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/consumer"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/elastic_client"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Provides the analytics events runner",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "consume analytics events into Elasticsearch",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "consumers",
						Value: 5,
						Usage: "number of batch consumers",
					},
					&cli.StringFlag{
						Name:  "stats-listen",
						Value: ":3333",
						Usage: "listen target for the queue stats server, empty to disable",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						Connection:      redis_client.QueueConnection,
						QueueName:       QueueName,
						NumberConsumers: c.Int("consumers"),
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewBatchConsumer(c.Bool("debug"), elastic_client.IndexRequest),
						StatsListen:     c.String("stats-listen"),
						Health: func() error {
							return redis_client.Client.Ping(context.Background()).Err()
						},
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish
					elastic_client.WaitUntilQueueEmpty()

					return nil
				},
			},
			{
				Name:  "test-event",
				Usage: "publish a test eta_query event",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					sink, err := NewQueueSink(redis_client.QueueConnection)
					if err != nil {
						return err
					}

					sink.Log("eta_query", map[string]string{
						"by_stop":  "18492910339410B1,1,1,KMB,O",
						"by_bound": "1,KMB,O",
						"by_route": "1,KMB",
					})
					log.Info().Str("queue", QueueName).Msg("Published test event")

					return nil
				},
			},
		},
	}
}
