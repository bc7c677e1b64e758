package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studyflow/backend/models"
)

// PredictionCache keeps the latest dropout prediction per student in redis so
// repeated risk lookups inside the freshness window skip the database. Cache
// failures degrade to a miss; the database remains the source of truth.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPredictionCache connects to redis. Returns nil when addr is empty so the
// cache can be wired as an optional dependency.
func NewPredictionCache(addr string) (*PredictionCache, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &PredictionCache{client: client, ttl: PredictionMaxAge}, nil
}

func predictionKey(studentID uint) string {
	return fmt.Sprintf("dropout:prediction:%d", studentID)
}

// Get returns the cached prediction or nil on miss, decode failure or any
// redis error.
func (c *PredictionCache) Get(studentID uint) *models.DropoutPrediction {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	data, err := c.client.Get(ctx, predictionKey(studentID)).Bytes()
	if err != nil {
		return nil
	}

	var prediction models.DropoutPrediction
	if err := json.Unmarshal(data, &prediction); err != nil {
		return nil
	}
	return &prediction
}

// Set stores a prediction with the freshness TTL. Errors are dropped: the row
// is already durable in postgres.
func (c *PredictionCache) Set(studentID uint, prediction *models.DropoutPrediction) {
	data, err := json.Marshal(prediction)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c.client.Set(ctx, predictionKey(studentID), data, c.ttl)
}

// Close releases the redis connection pool.
func (c *PredictionCache) Close() error {
	return c.client.Close()
}
