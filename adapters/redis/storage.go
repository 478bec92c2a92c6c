package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"scorekeeper/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"SCOREKEEPER_STORAGE_REDIS_ADDR"`
	Password     string        `json:"password" env:"SCOREKEEPER_STORAGE_REDIS_PASSWORD"`
	DB           int           `json:"db" env:"SCOREKEEPER_STORAGE_REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"SCOREKEEPER_STORAGE_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"SCOREKEEPER_STORAGE_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"SCOREKEEPER_STORAGE_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"SCOREKEEPER_STORAGE_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"SCOREKEEPER_STORAGE_REDIS_WRITE_TIMEOUT"`
	KeyPrefix    string        `json:"key_prefix" env:"SCOREKEEPER_STORAGE_REDIS_KEY_PREFIX"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "scorekeeper:",
	}
}

// Store implements engine.Storage on Redis.
// Data structure:
//   - {prefix}scores:seq -> last assigned score id
//   - {prefix}scores:rank -> sorted set, score = entry score, member = rank member
//   - {prefix}scores:entries -> hash of rank member to entry JSON
//   - {prefix}presets:seq -> last assigned preset id
//   - {prefix}presets:byname -> sorted set with all scores 0, member = name + NUL + padded id
//   - {prefix}presets:data -> hash of preset member to preset JSON
//
// Rank members are the zero-padded value MaxInt64-id, so among equal scores
// ZREVRANGE yields the oldest entry first and ZRANGE 0 0 yields the newest
// of the lowest scores.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: config.KeyPrefix}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(name string) string { return s.prefix + name }

func rankMember(id int64) string {
	return fmt.Sprintf("%019d", math.MaxInt64-id)
}

func presetMember(name string, id int64) string {
	return fmt.Sprintf("%s\x00%019d", name, id)
}

// Inserts the entry and, if the set is over capacity, removes and returns
// the payload of the lowest ranked member.
var submitScoreScript = redis.NewScript(`
	local rank, entries = KEYS[1], KEYS[2]
	local member, score, payload = ARGV[1], ARGV[2], ARGV[3]
	local capacity = tonumber(ARGV[4])

	redis.call('ZADD', rank, score, member)
	redis.call('HSET', entries, member, payload)

	if redis.call('ZCARD', rank) <= capacity then
		return false
	end

	local victim = redis.call('ZRANGE', rank, 0, 0)[1]
	local evicted = redis.call('HGET', entries, victim)
	redis.call('ZREM', rank, victim)
	redis.call('HDEL', entries, victim)
	return evicted
`)

// SubmitScore assigns an id and runs insert plus eviction as a single script.
func (s *Store) SubmitScore(ctx context.Context, entry core.ScoreEntry, capacity int) (core.Submission, error) {
	id, err := s.client.Incr(ctx, s.key("scores:seq")).Result()
	if err != nil {
		return core.Submission{}, fmt.Errorf("failed to allocate score id: %w", err)
	}
	entry.ID = id
	payload, err := json.Marshal(entry)
	if err != nil {
		return core.Submission{}, err
	}

	keys := []string{s.key("scores:rank"), s.key("scores:entries")}
	res, err := submitScoreScript.Run(ctx, s.client, keys, rankMember(id), entry.Score, payload, capacity).Result()
	sub := core.Submission{Entry: entry}
	if errors.Is(err, redis.Nil) {
		return sub, nil
	}
	if err != nil {
		return core.Submission{}, fmt.Errorf("failed to submit score: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return core.Submission{}, errors.New("unexpected result type from Redis script")
	}
	var evicted core.ScoreEntry
	if err := json.Unmarshal([]byte(raw), &evicted); err != nil {
		return core.Submission{}, fmt.Errorf("decode evicted entry: %w", err)
	}
	sub.Evicted = &evicted
	return sub, nil
}

func (s *Store) TopScores(ctx context.Context, limit int) ([]core.ScoreEntry, error) {
	members, err := s.client.ZRevRange(ctx, s.key("scores:rank"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking: %w", err)
	}
	out := make([]core.ScoreEntry, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key("scores:entries"), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // removed between the two reads
		}
		var e core.ScoreEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) CountScores(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key("scores:rank")).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count scores: %w", err)
	}
	return int(n), nil
}

func (s *Store) SubmitPreset(ctx context.Context, p core.InstructorPreset) (core.InstructorPreset, error) {
	id, err := s.client.Incr(ctx, s.key("presets:seq")).Result()
	if err != nil {
		return core.InstructorPreset{}, fmt.Errorf("failed to allocate preset id: %w", err)
	}
	p.ID = id
	payload, err := json.Marshal(p)
	if err != nil {
		return core.InstructorPreset{}, err
	}

	member := presetMember(p.Name, id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.key("presets:byname"), redis.Z{Score: 0, Member: member})
		pipe.HSet(ctx, s.key("presets:data"), member, payload)
		return nil
	})
	if err != nil {
		return core.InstructorPreset{}, fmt.Errorf("failed to store preset: %w", err)
	}
	return p, nil
}

// ListPresets relies on equal-score sorted sets ordering members byte-wise.
func (s *Store) ListPresets(ctx context.Context) ([]core.InstructorPreset, error) {
	members, err := s.client.ZRange(ctx, s.key("presets:byname"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read preset index: %w", err)
	}
	out := make([]core.InstructorPreset, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key("presets:data"), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p core.InstructorPreset
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode preset: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
