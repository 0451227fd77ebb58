package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/easysms/pkg/logger"
)

// RedisOptions configures the Redis recorder
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL of each entry; zero keeps entries forever
	TTL time.Duration
	// MaxEntries bounds the recent-dispatch index; zero means 1000
	MaxEntries int64
}

// RedisRecorder stores each entry as JSON under <prefix>entry:<id> and keeps
// a capped list of recent dispatch IDs under <prefix>recent.
type RedisRecorder struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	maxEntries int64
	logger     logger.Logger
}

// NewRedisRecorder connects to Redis and verifies the connection
func NewRedisRecorder(opts *RedisOptions, log logger.Logger) (*RedisRecorder, error) {
	if opts == nil {
		return nil, errors.New("redis options cannot be nil")
	}

	return dialRedis(withTimeouts(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), opts, log)
}

// redisClientOptions parses a redis:// or rediss:// URL. TLS settings and
// the ACL username from the URL are kept.
func redisClientOptions(dsn string) (*redis.Options, error) {
	clientOpts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}
	return withTimeouts(clientOpts), nil
}

func withTimeouts(clientOpts *redis.Options) *redis.Options {
	if clientOpts.DialTimeout == 0 {
		clientOpts.DialTimeout = 5 * time.Second
	}
	if clientOpts.ReadTimeout == 0 {
		clientOpts.ReadTimeout = 3 * time.Second
	}
	if clientOpts.WriteTimeout == 0 {
		clientOpts.WriteTimeout = 3 * time.Second
	}
	return clientOpts
}

func dialRedis(clientOpts *redis.Options, opts *RedisOptions, log logger.Logger) (*RedisRecorder, error) {
	client := redis.NewClient(clientOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRecorderWithClient(client, opts, log), nil
}

// NewRedisRecorderWithClient uses an existing client
func NewRedisRecorderWithClient(client *redis.Client, opts *RedisOptions, log logger.Logger) *RedisRecorder {
	if opts == nil {
		opts = &RedisOptions{}
	}
	r := &RedisRecorder{
		client:     client,
		keyPrefix:  opts.KeyPrefix,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		logger:     logger.OrDiscard(log),
	}
	if r.keyPrefix == "" {
		r.keyPrefix = "easysms:journal:"
	}
	if r.maxEntries <= 0 {
		r.maxEntries = 1000
	}
	return r
}

func (r *RedisRecorder) entryKey(id string) string {
	return r.keyPrefix + "entry:" + id
}

func (r *RedisRecorder) recentKey() string {
	return r.keyPrefix + "recent"
}

// Record stores the entry and pushes its ID onto the recent list
func (r *RedisRecorder) Record(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.entryKey(entry.DispatchID), data, r.ttl)
	pipe.LPush(ctx, r.recentKey(), entry.DispatchID)
	pipe.LTrim(ctx, r.recentKey(), 0, r.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}

	r.logger.Debug("Journal entry recorded", "dispatch_id", entry.DispatchID)
	return nil
}

// Get loads one entry by dispatch ID
func (r *RedisRecorder) Get(ctx context.Context, dispatchID string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.entryKey(dispatchID)).Bytes()
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
	}
	return &entry, nil
}

// Recent returns up to n entries, newest first. Expired entries are skipped
// and n <= 0 returns none.
func (r *RedisRecorder) Recent(ctx context.Context, n int64) ([]*Entry, error) {
	if n <= 0 {
		return []*Entry{}, nil
	}
	ids, err := r.client.LRange(ctx, r.recentKey(), 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := r.Get(ctx, id)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the Redis client
func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
