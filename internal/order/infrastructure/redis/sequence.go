package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

const DefaultSequenceKey = "pos:order_number"

// Sequence allocates order numbers with INCR so several pos-service
// replicas share one counter.
type Sequence struct {
	rdb   *goredis.Client
	key   string
	start int64
}

// NewSequence seeds key with start unless it already holds a value; the
// first number handed out is start+1.
func NewSequence(ctx context.Context, rdb *goredis.Client, key string, start int64) (*Sequence, error) {
	if err := rdb.SetNX(ctx, key, start, 0).Err(); err != nil {
		return nil, err
	}
	return &Sequence{rdb: rdb, key: key, start: start}, nil
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, s.key).Result()
}
