package feedspec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bitechdev/FeedSpec/pkg/logger"
)

// RedisProvider implements Provider over a Redis sorted-set keyspace.
//
// Each user maps to two keys under the <namespace>|<feed>| prefix:
//
//	data|<user_id>  sorted set, members = event values, scores = at
//	meta|<user_id>  string, last_read as a fixed-precision decimal
//
// plus an advisory lock|<user_id> key used only by DeleteIf.
//
// Every operation touches a single user's keys, so the keyspace shards
// transparently behind a hashing proxy; no multi-user aggregate command
// is ever issued. Commands for a user group are pipelined on one pooled
// connection; groups run in parallel bounded by the pool size.
type RedisProvider struct {
	client    redis.UniversalClient
	ownClient bool

	namespace string
	feed      string
	maxSize   int

	maxRetries int
	dispatch   dispatcher

	stats redisProviderStats
}

type redisProviderStats struct {
	Stores      atomic.Int64
	DedupHits   atomic.Int64
	Trims       atomic.Int64
	Deletes     atomic.Int64
	Wipes       atomic.Int64
	Paginations atomic.Int64
	Retries     atomic.Int64
}

// RedisProviderOptions configures the redis provider.
type RedisProviderOptions struct {
	// Host is the Redis server host (default: localhost).
	Host string

	// Port is the Redis server port (default: 6379).
	Port int

	// Password for Redis authentication (optional).
	Password string

	// DB is the Redis database number (default: 0).
	DB int

	// PoolSize bounds the connection pool (default: 10).
	PoolSize int

	// PoolTimeout bounds connection checkout (default: go-redis default).
	PoolTimeout time.Duration

	// Namespace is the keyspace prefix shared by all feeds (default: feedspec).
	Namespace string

	// Feed is the feed name this provider is bound to. Required.
	Feed string

	// MaxSize caps the number of events kept per user (default 1000).
	MaxSize int

	// BatchSize bounds the number of users pipelined per group (default 10).
	BatchSize int

	// OpTimeout is the overall deadline for a batched call (default none).
	OpTimeout time.Duration

	// MaxRetries bounds transparent retries of idempotent operations on
	// transient transport errors (default 2). Store is never retried.
	MaxRetries int

	// Client overrides the connection options with an externally managed
	// client (cluster, sentinel, test double). When set, no connection
	// check is performed here.
	Client redis.UniversalClient
}

// NewRedisProvider creates a redis-backed feed provider.
func NewRedisProvider(opts RedisProviderOptions) (*RedisProvider, error) {
	if opts.Feed == "" {
		return nil, configError("redis provider requires a feed name")
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 6379
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	if opts.Namespace == "" {
		opts.Namespace = "feedspec"
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}

	client := opts.Client
	ownClient := false
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:        fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Password:    opts.Password,
			DB:          opts.DB,
			PoolSize:    opts.PoolSize,
			PoolTimeout: opts.PoolTimeout,
			// Retries are handled per operation so Store stays single-shot.
			MaxRetries: -1,
		})
		ownClient = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, wrapError(ErrTransport, "connect", "", err)
		}
	}

	if debugEnabled() {
		client.AddHook(commandLogHook{})
	}

	rp := &RedisProvider{
		client:     client,
		ownClient:  ownClient,
		namespace:  opts.Namespace,
		feed:       opts.Feed,
		maxSize:    opts.MaxSize,
		maxRetries: opts.MaxRetries,
		dispatch: dispatcher{
			provider:  "redis",
			batchSize: opts.BatchSize,
			parallel:  true,
			timeout:   opts.OpTimeout,
		},
	}

	logger.Debug("Redis feed provider initialized (feed: %s, namespace: %s, max_size: %d, batch_size: %d)",
		opts.Feed, opts.Namespace, opts.MaxSize, opts.BatchSize)

	return rp, nil
}

func (rp *RedisProvider) dataKey(userID string) string {
	return fmt.Sprintf("%s|%s|data|%s", rp.namespace, rp.feed, userID)
}

func (rp *RedisProvider) metaKey(userID string) string {
	return fmt.Sprintf("%s|%s|meta|%s", rp.namespace, rp.feed, userID)
}

func (rp *RedisProvider) lockKey(userID string) string {
	return fmt.Sprintf("%s|%s|lock|%s", rp.namespace, rp.feed, userID)
}

// watermarkLua advances a last_read key to ARGV[1] only when it exceeds
// the stored value and returns whichever watermark won. The comparison
// runs server side so concurrent readers can never move the watermark
// backwards, and replaying the call is harmless.
const watermarkLua = `local current = redis.call('GET', KEYS[1])
if not current or tonumber(ARGV[1]) > tonumber(current) then
  redis.call('SET', KEYS[1], ARGV[1])
  return ARGV[1]
end
return current`

// classifyError maps a redis error to the feed error taxonomy.
func classifyError(op, userID string, err error) *FeedError {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return wrapError(ErrTimeout, op, userID, err)
	case errors.Is(err, redis.ErrPoolTimeout):
		return wrapError(ErrTransport, op, userID, err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return wrapError(ErrTransport, op, userID, err)
		}
		return wrapError(ErrProvider, op, userID, err)
	}
}

func isTransient(err error) bool {
	if errors.Is(err, redis.ErrPoolTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// execPipeline runs fill against a fresh pipeline. A transport-level
// failure is retried up to attempts times; per-command errors are left
// for the caller to inspect.
func (rp *RedisProvider) execPipeline(ctx context.Context, attempts int, fill func(pipe redis.Pipeliner)) ([]redis.Cmder, error) {
	var cmds []redis.Cmder
	var err error
	for attempt := 0; ; attempt++ {
		pipe := rp.client.Pipeline()
		fill(pipe)
		cmds, err = pipe.Exec(ctx)
		if err == nil || errors.Is(err, redis.Nil) {
			return cmds, nil
		}
		if attempt >= attempts || !isTransient(err) || ctx.Err() != nil {
			return cmds, err
		}
		rp.stats.Retries.Add(1)
		logger.Debug("Retrying pipeline after transient error: %v", err)
	}
}

// cmdErr extracts a usable per-command error, ignoring redis.Nil.
func cmdErr(cmd redis.Cmder) error {
	if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Store adds the event to each user's sorted set and trims overflow in
// the same pipelined unit. Not retried: a partially applied insert must
// stay observable rather than be replayed.
func (rp *RedisProvider) Store(ctx context.Context, userIDs []string, event Event) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "store", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		adds := make(map[string]*redis.IntCmd, len(group))
		trims := make(map[string]*redis.IntCmd, len(group))
		_, _ = rp.execPipeline(ctx, 0, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				key := rp.dataKey(userID)
				adds[userID] = pipe.ZAddNX(ctx, key, redis.Z{Score: event.At, Member: event.Value})
				trims[userID] = pipe.ZRemRangeByRank(ctx, key, 0, int64(-(rp.maxSize + 1)))
			}
		})
		for _, userID := range group {
			if err := cmdErr(adds[userID]); err != nil {
				out.fail(userID, classifyError("store", userID, err))
				continue
			}
			added := adds[userID].Val() == 1
			if added {
				rp.stats.Stores.Add(1)
			} else {
				rp.stats.DedupHits.Add(1)
			}
			if trimCmd := trims[userID]; trimCmd.Err() == nil {
				rp.stats.Trims.Add(trimCmd.Val())
			}
			out.set(userID, added)
		}
	})
	recordFeedOp("redis", "store", started, err)
	return resp, err
}

// Delete removes the event's value from each user's set.
func (rp *RedisProvider) Delete(ctx context.Context, userIDs []string, event Event) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "delete", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		rems := make(map[string]*redis.IntCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				rems[userID] = pipe.ZRem(ctx, rp.dataKey(userID), event.Value)
			}
		})
		for _, userID := range group {
			if err := cmdErr(rems[userID]); err != nil {
				out.fail(userID, classifyError("delete", userID, err))
				continue
			}
			removed := rems[userID].Val() > 0
			if removed {
				rp.stats.Deletes.Add(1)
			}
			out.set(userID, removed)
		}
	})
	recordFeedOp("redis", "delete", started, err)
	return resp, err
}

// DeleteIf fetches each user's events, evaluates the predicate client
// side and issues one pipelined multi-removal. Best effort: concurrent
// writers are not excluded, only an advisory lock is taken.
func (rp *RedisProvider) DeleteIf(ctx context.Context, userIDs []string, pred Predicate) (*Response, error) {
	if pred == nil {
		return nil, argumentError("delete_if", "nil predicate")
	}
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "delete_if", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		lockToken := uuid.NewString()
		fetches := make(map[string]*redis.ZSliceCmd, len(group))
		locks := make(map[string]*redis.BoolCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				locks[userID] = pipe.SetNX(ctx, rp.lockKey(userID), lockToken, 10*time.Second)
				fetches[userID] = pipe.ZRevRangeWithScores(ctx, rp.dataKey(userID), 0, -1)
			}
		})

		removals := make(map[string][]interface{}, len(group))
		for _, userID := range group {
			if err := cmdErr(fetches[userID]); err != nil {
				out.fail(userID, classifyError("delete_if", userID, err))
				continue
			}
			for _, z := range fetches[userID].Val() {
				event := Event{Value: fmt.Sprint(z.Member), At: z.Score}
				if pred(userID, event) {
					removals[userID] = append(removals[userID], event.Value)
				}
			}
		}

		rems := make(map[string]*redis.IntCmd, len(group))
		_, _ = rp.execPipeline(ctx, 0, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				if values := removals[userID]; len(values) > 0 {
					rems[userID] = pipe.ZRem(ctx, rp.dataKey(userID), values...)
				}
				if locks[userID] != nil && locks[userID].Val() {
					pipe.Del(ctx, rp.lockKey(userID))
				}
			}
		})
		for _, userID := range group {
			if out.done(userID) {
				continue
			}
			remCmd := rems[userID]
			if remCmd == nil {
				out.set(userID, 0)
				continue
			}
			if err := cmdErr(remCmd); err != nil {
				out.fail(userID, classifyError("delete_if", userID, err))
				continue
			}
			rp.stats.Deletes.Add(remCmd.Val())
			out.set(userID, int(remCmd.Val()))
		}
	})
	recordFeedOp("redis", "delete_if", started, err)
	return resp, err
}

// Wipe deletes both keys for each user.
func (rp *RedisProvider) Wipe(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "wipe", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		dels := make(map[string]*redis.IntCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				dels[userID] = pipe.Del(ctx, rp.dataKey(userID), rp.metaKey(userID))
			}
		})
		for _, userID := range group {
			if err := cmdErr(dels[userID]); err != nil {
				out.fail(userID, classifyError("wipe", userID, err))
				continue
			}
			existed := dels[userID].Val() > 0
			if existed {
				rp.stats.Wipes.Add(1)
			}
			out.set(userID, existed)
		}
	})
	recordFeedOp("redis", "wipe", started, err)
	return resp, err
}

// Paginate reads one reverse-rank page per user. Unless peeking, the
// watermark advances to the newest returned score with a server-side
// conditional max, so racing readers converge on the largest score any
// of them observed.
func (rp *RedisProvider) Paginate(ctx context.Context, userIDs []string, page Page) (*Response, error) {
	if err := validatePage("paginate", page); err != nil {
		return nil, err
	}
	if page.PerPage == 0 {
		page.PerPage = DefaultPerPage
	}
	started := time.Now()
	start := int64((page.Number - 1) * page.PerPage)
	stop := start + int64(page.PerPage) - 1

	resp, err := rp.dispatch.run(ctx, "paginate", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		ranges := make(map[string]*redis.ZSliceCmd, len(group))
		cards := make(map[string]*redis.IntCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				ranges[userID] = pipe.ZRevRangeWithScores(ctx, rp.dataKey(userID), start, stop)
				if page.WithTotal {
					cards[userID] = pipe.ZCard(ctx, rp.dataKey(userID))
				}
			}
		})

		results := make(map[string]PageResult, len(group))
		watermarks := make(map[string]float64, len(group))
		for _, userID := range group {
			if err := cmdErr(ranges[userID]); err != nil {
				out.fail(userID, classifyError("paginate", userID, err))
				continue
			}
			events := zsliceToEvents(ranges[userID].Val())
			result := PageResult{Events: events}
			if page.WithTotal {
				if err := cmdErr(cards[userID]); err != nil {
					out.fail(userID, classifyError("paginate", userID, err))
					continue
				}
				result.Total = int(cards[userID].Val())
			}
			results[userID] = result
			if !page.Peek && len(events) > 0 {
				watermarks[userID] = events[0].At
			}
		}

		marks := make(map[string]*redis.Cmd, len(watermarks))
		if len(watermarks) > 0 {
			_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
				for userID, watermark := range watermarks {
					marks[userID] = pipe.Eval(ctx, watermarkLua, []string{rp.metaKey(userID)}, formatScore(watermark))
				}
			})
		}
		for _, userID := range group {
			result, ok := results[userID]
			if !ok {
				continue
			}
			if markCmd := marks[userID]; markCmd != nil {
				if err := cmdErr(markCmd); err != nil {
					out.fail(userID, classifyError("paginate", userID, err))
					continue
				}
			}
			rp.stats.Paginations.Add(1)
			out.set(userID, result)
		}
	})
	recordFeedOp("redis", "paginate", started, err)
	return resp, err
}

// Fetch reads each user's full set, newest first.
func (rp *RedisProvider) Fetch(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "fetch", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		fetches := make(map[string]*redis.ZSliceCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				fetches[userID] = pipe.ZRevRangeWithScores(ctx, rp.dataKey(userID), 0, -1)
			}
		})
		for _, userID := range group {
			if err := cmdErr(fetches[userID]); err != nil {
				out.fail(userID, classifyError("fetch", userID, err))
				continue
			}
			out.set(userID, zsliceToEvents(fetches[userID].Val()))
		}
	})
	recordFeedOp("redis", "fetch", started, err)
	return resp, err
}

// ResetLastRead advances the watermark to at (or now) with the same
// server-side conditional max, never backwards.
func (rp *RedisProvider) ResetLastRead(ctx context.Context, userIDs []string, at float64) (*Response, error) {
	if at <= 0 {
		at = Now()
	}
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "reset_last_read", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		marks := make(map[string]*redis.Cmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				marks[userID] = pipe.Eval(ctx, watermarkLua, []string{rp.metaKey(userID)}, formatScore(at))
			}
		})
		for _, userID := range group {
			if err := cmdErr(marks[userID]); err != nil {
				out.fail(userID, classifyError("reset_last_read", userID, err))
				continue
			}
			text, err := marks[userID].Text()
			if err != nil {
				out.fail(userID, classifyError("reset_last_read", userID, err))
				continue
			}
			watermark, err := strconv.ParseFloat(text, 64)
			if err != nil {
				out.fail(userID, wrapError(ErrProvider, "reset_last_read", userID, err))
				continue
			}
			out.set(userID, watermark)
		}
	})
	recordFeedOp("redis", "reset_last_read", started, err)
	return resp, err
}

// TotalCount returns each user's set cardinality.
func (rp *RedisProvider) TotalCount(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "total_count", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		cards := make(map[string]*redis.IntCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				cards[userID] = pipe.ZCard(ctx, rp.dataKey(userID))
			}
		})
		for _, userID := range group {
			if err := cmdErr(cards[userID]); err != nil {
				out.fail(userID, classifyError("total_count", userID, err))
				continue
			}
			out.set(userID, int(cards[userID].Val()))
		}
	})
	recordFeedOp("redis", "total_count", started, err)
	return resp, err
}

// UnreadCount counts members scored strictly past the watermark using
// an exclusive score-range cardinality query.
func (rp *RedisProvider) UnreadCount(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "unread_count", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		metas := make(map[string]*redis.StringCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				metas[userID] = pipe.Get(ctx, rp.metaKey(userID))
			}
		})

		counts := make(map[string]*redis.IntCmd, len(group))
		lastReads := make(map[string]float64, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				if err := cmdErr(metas[userID]); err != nil {
					continue
				}
				lastReads[userID] = parseScore(metas[userID])
				counts[userID] = pipe.ZCount(ctx, rp.dataKey(userID),
					"("+formatScore(lastReads[userID]), "+inf")
			}
		})
		for _, userID := range group {
			if err := cmdErr(metas[userID]); err != nil {
				out.fail(userID, classifyError("unread_count", userID, err))
				continue
			}
			if err := cmdErr(counts[userID]); err != nil {
				out.fail(userID, classifyError("unread_count", userID, err))
				continue
			}
			out.set(userID, int(counts[userID].Val()))
		}
	})
	recordFeedOp("redis", "unread_count", started, err)
	return resp, err
}

// LastRead returns each user's current watermark.
func (rp *RedisProvider) LastRead(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := rp.dispatch.run(ctx, "last_read", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		metas := make(map[string]*redis.StringCmd, len(group))
		_, _ = rp.execPipeline(ctx, rp.maxRetries, func(pipe redis.Pipeliner) {
			for _, userID := range group {
				metas[userID] = pipe.Get(ctx, rp.metaKey(userID))
			}
		})
		for _, userID := range group {
			if err := cmdErr(metas[userID]); err != nil {
				out.fail(userID, classifyError("last_read", userID, err))
				continue
			}
			out.set(userID, parseScore(metas[userID]))
		}
	})
	recordFeedOp("redis", "last_read", started, err)
	return resp, err
}

// Close closes the underlying client when this provider created it.
func (rp *RedisProvider) Close() error {
	if !rp.ownClient {
		return nil
	}
	return rp.client.Close()
}

// Stats returns provider statistics.
func (rp *RedisProvider) Stats(ctx context.Context) (*ProviderStats, error) {
	return &ProviderStats{
		ProviderType: "redis",
		Stores:       rp.stats.Stores.Load(),
		DedupHits:    rp.stats.DedupHits.Load(),
		Trims:        rp.stats.Trims.Load(),
		Deletes:      rp.stats.Deletes.Load(),
		Wipes:        rp.stats.Wipes.Load(),
		Paginations:  rp.stats.Paginations.Load(),
		ProviderSpecific: map[string]interface{}{
			"namespace": rp.namespace,
			"feed":      rp.feed,
			"max_size":  rp.maxSize,
			"retries":   rp.stats.Retries.Load(),
		},
	}, nil
}

// zsliceToEvents converts a WITHSCORES reply, preserving reply order
// (score descending, equal scores reverse-lexicographic).
func zsliceToEvents(zs []redis.Z) []Event {
	events := make([]Event, 0, len(zs))
	for _, z := range zs {
		events = append(events, Event{Value: fmt.Sprint(z.Member), At: z.Score})
	}
	return events
}

// parseScore reads a fixed-precision decimal watermark; a missing key
// (redis.Nil) means 0.
func parseScore(cmd *redis.StringCmd) float64 {
	if cmd == nil || cmd.Err() != nil {
		return 0
	}
	score, err := strconv.ParseFloat(cmd.Val(), 64)
	if err != nil {
		return 0
	}
	return score
}
