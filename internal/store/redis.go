// internal/store/redis.go
//
// Redis implementation of Store.
//
// Keys (prefix defaults to "{guesswho}:" so every key lands in one cluster slot):
//   - <prefix>round          hash: id, secret, started_at
//   - <prefix>round:guesses  set of normalized wrong guesses
//   - <prefix>scores         hash: user -> score
//   - <prefix>scores:order   hash: user -> arrival sequence of first point
//   - <prefix>scores:seq     counter feeding scores:order
//
// Each mutation is a single Lua script, so it is atomic on the server.

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix keeps all keys in the same hash slot.
const DefaultRedisPrefix = "{guesswho}:"

var createRoundScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("DEL", KEYS[2])
redis.call("HSET", KEYS[1], "id", ARGV[1], "secret", ARGV[2], "started_at", ARGV[3])
return 1
`)

var appendGuessScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") ~= ARGV[1] then
  return -1
end
return redis.call("SADD", KEYS[2], ARGV[2])
`)

var finishRoundScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") ~= ARGV[1] then
  return -1
end
local score = redis.call("HINCRBY", KEYS[3], ARGV[2], 1)
if redis.call("HEXISTS", KEYS[4], ARGV[2]) == 0 then
  redis.call("HSET", KEYS[4], ARGV[2], redis.call("INCR", KEYS[5]))
end
redis.call("DEL", KEYS[1], KEYS[2])
return score
`)

var deleteScoreScript = redis.NewScript(`
redis.call("HDEL", KEYS[2], ARGV[1])
return redis.call("HDEL", KEYS[1], ARGV[1])
`)

// Redis is a Store backed by a Redis server.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

// OpenRedis parses url (redis://...) and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisStore wraps rdb. An empty prefix means DefaultRedisPrefix.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (s *Redis) roundKey() string      { return s.prefix + "round" }
func (s *Redis) guessesKey() string    { return s.prefix + "round:guesses" }
func (s *Redis) scoresKey() string     { return s.prefix + "scores" }
func (s *Redis) scoreOrderKey() string { return s.prefix + "scores:order" }
func (s *Redis) scoreSeqKey() string   { return s.prefix + "scores:seq" }

func (s *Redis) Active(ctx context.Context) (*Round, error) {
	var fields *redis.MapStringStringCmd
	var members *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		fields = p.HGetAll(ctx, s.roundKey())
		members = p.SMembers(ctx, s.guessesKey())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read round: %w", err)
	}
	h := fields.Val()
	if len(h) == 0 {
		return nil, nil
	}
	return &Round{
		ID:        h["id"],
		Secret:    h["secret"],
		Guesses:   sortedCopy(members.Val()),
		StartedAt: parseTime(h["started_at"]),
	}, nil
}

func (s *Redis) CreateIfAbsent(ctx context.Context, r Round) (bool, error) {
	n, err := createRoundScript.Run(ctx, s.rdb,
		[]string{s.roundKey(), s.guessesKey()},
		r.ID, r.Secret, formatTime(r.StartedAt),
	).Int()
	if err != nil {
		return false, fmt.Errorf("create round: %w", err)
	}
	return n == 1, nil
}

func (s *Redis) AppendGuessIfNew(ctx context.Context, roundID, guess string) (bool, error) {
	n, err := appendGuessScript.Run(ctx, s.rdb,
		[]string{s.roundKey(), s.guessesKey()},
		roundID, guess,
	).Int()
	if err != nil {
		return false, fmt.Errorf("append guess: %w", err)
	}
	if n < 0 {
		return false, ErrNoActiveRound
	}
	return n == 1, nil
}

func (s *Redis) FinishAndAward(ctx context.Context, roundID, userID string) (int, error) {
	n, err := finishRoundScript.Run(ctx, s.rdb,
		[]string{s.roundKey(), s.guessesKey(), s.scoresKey(), s.scoreOrderKey(), s.scoreSeqKey()},
		roundID, userID,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("finish round: %w", err)
	}
	if n < 0 {
		return 0, ErrNoActiveRound
	}
	return n, nil
}

func (s *Redis) ClearRound(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.roundKey(), s.guessesKey()).Err(); err != nil {
		return fmt.Errorf("clear round: %w", err)
	}
	return nil
}

func (s *Redis) DeleteLeaderboardEntry(ctx context.Context, userID string) (bool, error) {
	n, err := deleteScoreScript.Run(ctx, s.rdb,
		[]string{s.scoresKey(), s.scoreOrderKey()},
		userID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("delete score: %w", err)
	}
	return n > 0, nil
}

func (s *Redis) TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var scores, order *redis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		scores = p.HGetAll(ctx, s.scoresKey())
		order = p.HGetAll(ctx, s.scoreOrderKey())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read scores: %w", err)
	}

	type row struct {
		LeaderboardEntry
		seq int64
	}
	seqs := order.Val()
	rows := make([]row, 0, len(scores.Val()))
	for user, raw := range scores.Val() {
		score, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("score for %q: %w", user, err)
		}
		seq, _ := strconv.ParseInt(seqs[user], 10, 64)
		rows = append(rows, row{LeaderboardEntry{UserID: user, Score: score}, seq})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].seq != rows[j].seq {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = r.LeaderboardEntry
	}
	return out, nil
}

func (s *Redis) Close() error { return s.rdb.Close() }
