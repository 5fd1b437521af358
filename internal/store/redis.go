package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pilotjobs/internal/model"
)

// Redis keys and channel written by RedisPublisher.
const (
	TodayKey     = "pilotjobs:today"
	ResultsKey   = "pilotjobs:results"
	EventChannel = "EVENT_JOBS_SCRAPED"
)

// ScrapedEvent is the payload published on EventChannel after each run.
type ScrapedEvent struct {
	Type      string    `json:"type"`
	RunID     string    `json:"runId"`
	Count     int       `json:"count"`
	NewCount  int       `json:"newCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RedisPublisher caches the latest run in Redis and announces it on a channel.
type RedisPublisher struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPublisher returns a publisher whose cached keys expire after ttl.
func NewRedisPublisher(rdb *redis.Client, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, ttl: ttl}
}

// Publish stores today's jobs and per-source results, then publishes a
// ScrapedEvent.
func (p *RedisPublisher) Publish(ctx context.Context, doc *model.Document) error {
	today, err := json.Marshal(doc.Today)
	if err != nil {
		return fmt.Errorf("marshal today: %w", err)
	}

	results := make(map[string]any, len(doc.Results))
	for name, r := range doc.Results {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal result %s: %w", name, err)
		}
		results[name] = string(raw)
	}

	event, err := json.Marshal(ScrapedEvent{
		Type:      EventChannel,
		RunID:     doc.RunID,
		Count:     len(doc.Today),
		NewCount:  countNew(doc.Today),
		UpdatedAt: doc.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, TodayKey, today, p.ttl)
		pipe.Del(ctx, ResultsKey)
		if len(results) > 0 {
			pipe.HSet(ctx, ResultsKey, results)
			pipe.Expire(ctx, ResultsKey, p.ttl)
		}
		pipe.Publish(ctx, EventChannel, event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func countNew(jobs []model.Job) int {
	n := 0
	for _, j := range jobs {
		if j.New {
			n++
		}
	}
	return n
}
