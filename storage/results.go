package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"auction_tracker/models"
)

// ResultCache holds the last successful scan. Save replaces the whole set.
type ResultCache interface {
	Load(ctx context.Context) ([]models.ClassificationResult, error)
	Save(ctx context.Context, results []models.ClassificationResult) error
}

// FileResultCache stores results as a JSON file, written via temp file and
// rename so readers never see a partial file.
type FileResultCache struct {
	path string
}

func NewFileResultCache(path string) *FileResultCache {
	return &FileResultCache{path: path}
}

func (c *FileResultCache) Load(ctx context.Context) ([]models.ClassificationResult, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var results []models.ClassificationResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.path, err)
	}
	return results, nil
}

func (c *FileResultCache) Save(ctx context.Context, results []models.ClassificationResult) error {
	if results == nil {
		results = []models.ClassificationResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

const DefaultResultsKey = "auction_tracker:scan:results"

// RedisResultCache keeps the result set under a single key so several
// processes can serve the same scan.
type RedisResultCache struct {
	client *redis.Client
	key    string
}

func NewRedisResultCache(ctx context.Context, redisURL string) (*RedisResultCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisResultCacheWithClient(client, DefaultResultsKey), nil
}

func NewRedisResultCacheWithClient(client *redis.Client, key string) *RedisResultCache {
	return &RedisResultCache{client: client, key: key}
}

func (c *RedisResultCache) Load(ctx context.Context) ([]models.ClassificationResult, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var results []models.ClassificationResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.key, err)
	}
	return results, nil
}

func (c *RedisResultCache) Save(ctx context.Context, results []models.ClassificationResult) error {
	if results == nil {
		results = []models.ClassificationResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, 0).Err()
}

func (c *RedisResultCache) Close() error {
	return c.client.Close()
}
