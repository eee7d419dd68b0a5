package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codegalaxy/internal/logger"
	"codegalaxy/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	activityStream    = "codegalaxy:activity"
	activityStreamLen = 1000
)

// Relay shares activity events between server instances through a Redis
// stream. Every instance tails the stream and feeds its local Hub.
type Relay struct {
	rdb   redis.UniversalClient
	local *Hub
	log   *zap.Logger
}

func NewRelay(rdb redis.UniversalClient, local *Hub, log *zap.Logger) *Relay {
	return &Relay{rdb: rdb, local: local, log: logger.OrNop(log)}
}

// Publish appends event to the stream. When Redis is unreachable the event
// is delivered to local clients only.
func (r *Relay) Publish(event models.ActivityEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		r.log.Warn("failed to encode activity event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: activityStream,
		MaxLen: activityStreamLen,
		Approx: true,
		Values: map[string]interface{}{"event": string(data)},
	}).Err()
	if err != nil {
		r.log.Warn("activity relay unavailable, delivering locally", zap.Error(err))
		r.local.Publish(event)
	}
}

// Run tails the stream until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	lastID := "$"
	for ctx.Err() == nil {
		next, err := r.drain(ctx, lastID, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("activity stream read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		lastID = next
	}
}

// drain forwards entries after lastID to the local hub and returns the last
// ID seen. A negative block returns immediately.
func (r *Relay) drain(ctx context.Context, lastID string, block time.Duration) (string, error) {
	streams, err := r.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{activityStream, lastID},
		Count:   100,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return lastID, nil
	}
	if err != nil {
		return lastID, err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			lastID = msg.ID
			raw, _ := msg.Values["event"].(string)
			var event models.ActivityEvent
			if err := json.Unmarshal([]byte(raw), &event); err != nil {
				r.log.Warn("dropping malformed activity event", zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			r.local.Publish(event)
		}
	}
	return lastID, nil
}
