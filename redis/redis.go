// Package redis provides a store backend on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/edgeee/likeboard/board"
)

// Store keeps each board key as a plain Redis value and maintains a
// lexicographically ordered set per partition so prefix scans come back
// in key order. Writes of an Update transaction are queued locally and
// committed in a single MULTI/EXEC pipeline, so a failed transaction
// writes nothing.
type Store struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings it to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Store, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{cli: cli}, nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}

func (s *Store) View(ctx context.Context, fn func(tx board.Tx) error) error {
	return fn(&tx{ctx: ctx, cli: s.cli, readOnly: true})
}

func (s *Store) Update(ctx context.Context, fn func(tx board.Tx) error) error {
	t := &tx{
		ctx:     ctx,
		cli:     s.cli,
		pending: make(map[string][]byte),
	}
	if err := fn(t); err != nil {
		return err
	}
	if len(t.order) == 0 {
		return nil
	}
	err := s.cli.Watch(ctx, func(rtx *redis.Tx) error {
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, key := range t.order {
				pipe.Set(ctx, key, t.pending[key], 0)
				pipe.ZAdd(ctx, indexFor(key), redis.Z{Score: 0, Member: key})
			}
			return nil
		})
		return err
	}, t.order...)
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	return nil
}

type tx struct {
	ctx      context.Context
	cli      *redis.Client
	readOnly bool
	pending  map[string][]byte
	order    []string
}

func (t *tx) Get(key []byte) ([]byte, error) {
	if v, ok := t.pending[string(key)]; ok {
		return v, nil
	}
	raw, err := t.cli.Get(t.ctx, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, board.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return raw, nil
}

func (t *tx) Set(key, value []byte) error {
	if t.readOnly {
		panic("redis: set inside a read-only transaction")
	}
	k := string(key)
	if _, ok := t.pending[k]; !ok {
		t.order = append(t.order, k)
	}
	t.pending[k] = append([]byte(nil), value...)
	return nil
}

func (t *tx) Scan(prefix []byte, fn func(key, value []byte) error) error {
	keys, err := t.cli.ZRangeByLex(t.ctx, indexFor(string(prefix)), &redis.ZRangeBy{
		Min: "-",
		Max: "+",
	}).Result()
	if err != nil {
		return fmt.Errorf("redis zrangebylex: %w", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, string(prefix)) {
			continue
		}
		value, err := t.Get([]byte(key))
		if err != nil {
			return err
		}
		if err := fn([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

// indexFor maps a key to the sorted set indexing its partition, e.g.
// "messages:00…2a" -> "index:messages:".
func indexFor(key string) string {
	if i := strings.Index(key, ":"); i >= 0 {
		return "index:" + key[:i+1]
	}
	return "index:" + key
}
