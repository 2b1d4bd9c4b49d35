package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/avstrong/stays/internal/kv"
	"github.com/avstrong/stays/internal/logger"
)

const defaultMaxTxRetries = 10

type Config struct {
	L            *logger.Logger
	Addr         string
	Password     string
	DB           int
	MaxTxRetries int
}

// Store keeps values in Redis. Update uses WATCH/MULTI and retries when a
// watched key changed under it.
type Store struct {
	l          *logger.Logger
	client     *redis.Client
	maxRetries int
}

func New(conf Config) *Store {
	//nolint:exhaustruct
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	return NewWithClient(conf.L, client, conf.MaxTxRetries)
}

func NewWithClient(l *logger.Logger, client *redis.Client, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = defaultMaxTxRetries
	}

	l.LogInfo("Redis key-value store initialized with address %s", client.Options().Addr)

	return &Store{l: l, client: client, maxRetries: maxRetries}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close() //nolint:wrapcheck
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	return v, true, nil
}

func (s *Store) Update(ctx context.Context, keys []string, fn kv.UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current := make(map[string][]byte, len(keys))

		for _, k := range keys {
			v, err := tx.Get(ctx, k).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}

			if err != nil {
				return fmt.Errorf("get %s: %w", k, err)
			}

			current[k] = v
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range next {
				if v == nil {
					pipe.Del(ctx, k)

					continue
				}

				pipe.Set(ctx, k, v, 0)
			}

			return nil
		})

		return err //nolint:wrapcheck
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}

		if !errors.Is(err, redis.TxFailedErr) {
			return err //nolint:wrapcheck
		}

		s.l.LogDebug("Watched keys %v changed, retrying update (attempt %d)", keys, attempt+1)
	}

	return fmt.Errorf("update %v: %w", keys, kv.ErrConflict)
}
