package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig configures the Redis sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Channel receives every sample via PUBLISH.
	Channel string

	// History bounds the per-endpoint backlog list; zero disables it.
	History int64
}

// Redis publishes samples on a pub/sub channel and keeps a bounded
// per-endpoint history list as a persistent backup.
type Redis struct {
	client  *redis.Client
	channel string
	history int64
	log     zerolog.Logger
}

// NewRedis connects and verifies the server answers a ping.
func NewRedis(cfg RedisConfig, log zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: redis ping: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = "hygro:samples"
	}
	return &Redis{
		client:  client,
		channel: cfg.Channel,
		history: cfg.History,
		log:     log,
	}, nil
}

// Publish implements Publisher. Channel delivery failures are errors;
// a failed history write only logs, the sample is already out.
func (r *Redis) Publish(ctx context.Context, s Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("telemetry: encoding sample: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("telemetry: redis publish: %w", err)
	}

	if r.history > 0 {
		key := historyKey(s.Endpoint)
		if err := r.client.LPush(ctx, key, data).Err(); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("history write failed")
			return nil
		}
		r.client.LTrim(ctx, key, 0, r.history-1)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func historyKey(endpoint string) string {
	return "hygro:" + endpoint + ":history"
}
