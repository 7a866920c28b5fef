package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"trackmeet/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	eventsKey     = "trackmeet:events:all"
	generationKey = "trackmeet:events:generation"
)

// EventsCache keeps the public event list in Redis. Failures degrade to a miss.
//
// Every Invalidate bumps a generation counter. A list read from the database is
// only stored when the counter still holds the value seen before that read.
type EventsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventsCache(rdb *redis.Client, ttl time.Duration) *EventsCache {
	return &EventsCache{rdb: rdb, ttl: ttl}
}

// GetEvents returns the cached list, or the current generation on a miss.
func (c *EventsCache) GetEvents(ctx context.Context) ([]model.Event, int64, bool) {
	vals, err := c.rdb.MGet(ctx, eventsKey, generationKey).Result()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("events cache read failed")
		return nil, -1, false
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("events cache generation corrupt")
		return nil, -1, false
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var events []model.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("events cache entry corrupt")
		return nil, gen, false
	}
	return events, gen, true
}

// SetEvents stores events unless the list was invalidated after generation was read.
func (c *EventsCache) SetEvents(ctx context.Context, generation int64, events []model.Event) {
	if generation < 0 {
		return
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, eventsKey, raw, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		log.Ctx(ctx).Debug().Msg("events cache write skipped, list changed")
	default:
		log.Ctx(ctx).Warn().Err(err).Msg("events cache write failed")
	}
}

func (c *EventsCache) Invalidate(ctx context.Context) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, eventsKey)
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("events cache invalidation failed")
	}
}

var errStale = errors.New("events cache generation moved")

func parseGeneration(v interface{}) (int64, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(g, 10, 64)
	default:
		return 0, errors.New("unexpected generation type")
	}
}
