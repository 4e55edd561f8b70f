package rstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
	"strings"
	"time"
)

var (
	Logger = logger.GetLogger(common.LoggerStore)
)

type storeImpl struct {
	// cmd is the handle commands are issued on, either the client itself or a pipeline
	cmd    redis.Cmdable
	client redis.UniversalClient
	// queued is set for batches, results of queued commands are unknown
	queued bool
}

// NewRedisStore creates a new store connected to the redis server(s) of the configuration.
// A single address creates a simple client, multiple addresses a cluster client.
// The connection is verified with a PING before the store is returned.
func NewRedisStore(config common.RedisConfig) (store.IStore, error) {
	if len(config.Addrs) == 0 {
		return nil, common.Errorf(common.RetCInvalidConfig, "at least one redis address is required")
	}

	// go-redis retries 3 times when MaxRetries is 0, -1 disables retries
	retries := config.RetryCount
	if retries <= 0 {
		retries = -1
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        config.Addrs,
		Username:     config.Username,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.Timeout(),
		ReadTimeout:  config.Timeout(),
		WriteTimeout: config.Timeout(),
		PoolSize:     config.PoolSize,
		MaxRetries:   retries,
	})

	ctx := context.Background()
	if t := config.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", strings.Join(config.Addrs, ","), err)
	}

	Logger.Infof("connected to redis at %s (db %d)", strings.Join(config.Addrs, ","), config.DB)
	return NewFromClient(client), nil
}

// NewFromClient creates a new store using an existing client.
// The store takes ownership of the client: closing the store closes the client.
func NewFromClient(client redis.UniversalClient) store.IStore {
	return &storeImpl{
		cmd:    client,
		client: client,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// toSetArgs converts the store arguments to the arguments of the go-redis SET command
func toSetArgs(cond store.Condition, exp store.Expiration) redis.SetArgs {
	args := redis.SetArgs{}
	switch cond {
	case store.CondIfExists:
		args.Mode = "XX"
	case store.CondIfAbsent:
		args.Mode = "NX"
	}
	switch exp.Mode {
	case store.ExpireFixed:
		args.TTL = exp.TTL
	case store.ExpireKeep:
		args.KeepTTL = true
	}
	return args
}

// parseInfo parses the output of the INFO command ("key:value" lines, "#" section headers)
func parseInfo(raw string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			info[k] = v
		}
	}
	return info
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.cmd.Get(ctx, key).Result()
	if s.queued || errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *storeImpl) Set(ctx context.Context, key, value string, args store.SetArgs) (bool, error) {
	err := s.cmd.SetArgs(ctx, key, value, toSetArgs(args.Condition, args.Expiration)).Err()
	if errors.Is(err, redis.Nil) {
		// the NX / XX condition was not met
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *storeImpl) SetGet(ctx context.Context, key, value string, args store.SetArgs) (string, bool, error) {
	setArgs := toSetArgs(args.Condition, args.Expiration)
	setArgs.Get = true
	prev, err := s.cmd.SetArgs(ctx, key, value, setArgs).Result()
	if s.queued || errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return prev, true, nil
}

func (s *storeImpl) SetIfAbsentGet(ctx context.Context, key, value string, exp store.Expiration) (string, bool, error) {
	return s.SetGet(ctx, key, value, store.SetArgs{Condition: store.CondIfAbsent, Expiration: exp})
}

func (s *storeImpl) GetDel(ctx context.Context, key string) (string, bool, error) {
	val, err := s.cmd.GetDel(ctx, key).Result()
	if s.queued || errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *storeImpl) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return s.cmd.Del(ctx, keys...).Result()
}

func (s *storeImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.cmd.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *storeImpl) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return s.cmd.Scan(ctx, cursor, match, count).Result()
}

func (s *storeImpl) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.cmd.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	result := make([]*string, len(vals))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			result[i] = &str
		}
	}
	return result, nil
}

func (s *storeImpl) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.cmd.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	// -1 (no expiration) and -2 (missing key) are returned as negative durations
	if s.queued || ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (s *storeImpl) ZAdd(ctx context.Context, set, member string, score float64) error {
	return s.cmd.ZAdd(ctx, set, redis.Z{Score: score, Member: member}).Err()
}

func (s *storeImpl) ZRem(ctx context.Context, set string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.cmd.ZRem(ctx, set, args...).Err()
}

func (s *storeImpl) ZCard(ctx context.Context, set string) (int64, error) {
	return s.cmd.ZCard(ctx, set).Result()
}

func (s *storeImpl) ZRange(ctx context.Context, set string, start, stop int64) ([]string, error) {
	return s.cmd.ZRange(ctx, set, start, stop).Result()
}

func (s *storeImpl) Info(ctx context.Context) (map[string]string, error) {
	raw, err := s.cmd.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	return parseInfo(raw), nil
}

func (s *storeImpl) Batch() store.IBatch {
	pipe := s.client.Pipeline()
	return &batchImpl{
		storeImpl: storeImpl{
			cmd:    pipe,
			client: s.client,
			queued: true,
		},
		pipe: pipe,
	}
}

func (s *storeImpl) Close() error {
	return s.client.Close()
}
