package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/npezzotti/go-teamchat/internal/types"
	"github.com/redis/go-redis/v9"
)

const firstMessagePrefix = "first-message"

// FirstMessageMarker remembers which targets already received a message on
// a given day.
type FirstMessageMarker interface {
	// MarkFirstMessage reports true when no marker existed yet for the
	// target on day's calendar date, creating it.
	MarkFirstMessage(ctx context.Context, target types.Target, day time.Time) (bool, error)
	// ReleaseFirstMessage drops the marker so the next message on day is
	// treated as the first again.
	ReleaseFirstMessage(ctx context.Context, target types.Target, day time.Time) error
}

// Redis provides the first-message markers in Redis.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

func (r *Redis) Close() error {
	return r.cli.Close()
}

// MarkFirstMessage sets the marker with SETNX. The key expires at the end of
// the UTC day it belongs to.
func (r *Redis) MarkFirstMessage(ctx context.Context, target types.Target, day time.Time) (bool, error) {
	ok, err := r.cli.SetNX(ctx, firstMessageKey(target, day), day.UTC().Unix(), untilEndOfDay(day)).Result()
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	return ok, nil
}

func (r *Redis) ReleaseFirstMessage(ctx context.Context, target types.Target, day time.Time) error {
	if err := r.cli.Del(ctx, firstMessageKey(target, day)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

func firstMessageKey(target types.Target, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", firstMessagePrefix, target.Kind, target.Id, day.UTC().Format(time.DateOnly))
}

func untilEndOfDay(t time.Time) time.Duration {
	t = t.UTC()
	end := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
	return end.Sub(t)
}

// Nop never remembers anything, so every message is a candidate first
// message and the durable store decides.
type Nop struct{}

func (Nop) MarkFirstMessage(context.Context, types.Target, time.Time) (bool, error) {
	return true, nil
}

func (Nop) ReleaseFirstMessage(context.Context, types.Target, time.Time) error {
	return nil
}
