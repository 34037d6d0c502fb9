package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores the latest event under <prefix>lastAction and publishes it on
// <prefix>actions.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) LastActionKey() string { return r.prefix + "lastAction" }
func (r *Redis) Channel() string       { return r.prefix + "actions" }

func (r *Redis) Notify(ctx context.Context, ev Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	_, err = r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.LastActionKey(), data, 0)
		p.Publish(ctx, r.Channel(), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis last action: %w", err)
	}
	return nil
}
