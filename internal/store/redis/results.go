package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vxrdis/allen-interval-probabilities/internal/store"
)

const resultsHashKey = "allensim:results"

// ResultStore persists simulation results in a single Redis hash, one field
// per parameter key. Append-only, matching the cache's eviction-free
// semantics; Clear deletes the whole hash.
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(url string) (*ResultStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &ResultStore{client: client}, nil
}

func (s *ResultStore) Save(ctx context.Context, rec store.RunRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	field := store.ParamKey(rec.PBorn, rec.PDie, rec.Trials, rec.Seed)
	if err := s.client.HSet(ctx, resultsHashKey, field, payload).Err(); err != nil {
		return fmt.Errorf("persist run record: %w", err)
	}
	return nil
}

func (s *ResultStore) Load(ctx context.Context, key string) (store.RunRecord, bool, error) {
	payload, err := s.client.HGet(ctx, resultsHashKey, key).Result()
	if err == redis.Nil {
		return store.RunRecord{}, false, nil
	}
	if err != nil {
		return store.RunRecord{}, false, fmt.Errorf("load run record: %w", err)
	}
	var rec store.RunRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return store.RunRecord{}, false, fmt.Errorf("unmarshal run record: %w", err)
	}
	return rec, true, nil
}

func (s *ResultStore) List(ctx context.Context) ([]store.RunRecord, error) {
	fields, err := s.client.HGetAll(ctx, resultsHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	records := make([]store.RunRecord, 0, len(fields))
	for field, payload := range fields {
		var rec store.RunRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal run record %q: %w", field, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *ResultStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, resultsHashKey).Err(); err != nil {
		return fmt.Errorf("clear run records: %w", err)
	}
	return nil
}

func (s *ResultStore) Close() error {
	return s.client.Close()
}
