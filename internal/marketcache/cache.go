package marketcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jwtly10/smartbreakout/internal/logging"
	"github.com/jwtly10/smartbreakout/internal/types"
)

const (
	KeyPrefix  = "smartbreakout:candles:"
	DefaultTTL = 10 * time.Second
)

var cacheLog = logging.New("cache")

// Commands is the subset of *redis.Client the cache needs.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cached wraps a CandleSource with a short-lived Redis copy of each response,
// so repeated invocations inside one candle do not hit the exchange.
// Redis failures never fail a fetch; the source is used instead.
//
// A hit returns the in-progress candle as it was when cached, so the current
// price a signal is evaluated on can be up to ttl old. Keep ttl well below the
// candle interval.
type Cached struct {
	source types.CandleSource
	rdb    Commands
	ttl    time.Duration
	log    *slog.Logger
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func New(source types.CandleSource, rdb Commands, ttl time.Duration, log *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cached{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		log:    log,
	}
}

func Key(req types.CandleRequest) string {
	return fmt.Sprintf("%s%s:%s:%d", KeyPrefix, strings.ToUpper(req.Symbol), req.Interval, req.Limit)
}

func (c *Cached) FetchCandles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	key := Key(req)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var candles []types.Candle
		if err := json.Unmarshal(data, &candles); err != nil {
			c.log.Warn("Discarding unreadable cached candles", "key", key, "error", err)
			break
		}
		cacheLog.Debug("Cache hit", "key", key, "count", len(candles))
		return candles, nil
	case errors.Is(err, redis.Nil):
		cacheLog.Debug("Cache miss", "key", key)
	default:
		c.log.Warn("Redis get failed, fetching from source", "key", key, "error", err)
	}

	candles, err := c.source.FetchCandles(ctx, req)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(candles)
	if err != nil {
		c.log.Warn("Failed to encode candles for cache", "key", key, "error", err)
		return candles, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("Redis set failed", "key", key, "error", err)
	}

	return candles, nil
}
