package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisAdapter stores each document as a JSON string under
// prefix+collection+":"+id and keeps the ids of a collection in a set
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

// NewRedisAdapter connects to Redis and verifies the connection
func NewRedisAdapter(ctx context.Context, cfg RedisConfig) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisAdapterWithClient(client, cfg.Prefix), nil
}

// NewRedisAdapterWithClient creates an adapter over an existing client
func NewRedisAdapterWithClient(client *redis.Client, prefix string) *RedisAdapter {
	if prefix == "" {
		prefix = "mapper:"
	}
	return &RedisAdapter{client: client, prefix: prefix}
}

// Client returns the underlying client
func (a *RedisAdapter) Client() *redis.Client {
	return a.client
}

func (a *RedisAdapter) docKey(collection string, id interface{}) string {
	return a.prefix + collection + ":" + DocumentKey(id)
}

func (a *RedisAdapter) idsKey(collection string) string {
	return a.prefix + collection + ":$ids"
}

func (a *RedisAdapter) indexKey(collection string) string {
	return a.prefix + collection + ":$indexes"
}

func (a *RedisAdapter) collectionsKey() string {
	return a.prefix + "$collections"
}

// Push stores a new document
func (a *RedisAdapter) Push(ctx context.Context, collection string, doc map[string]interface{}) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	id := doc["id"]
	ok, err := a.client.SetNX(ctx, a.docKey(collection, id), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, DocumentKey(id))
	}

	pipe := a.client.TxPipeline()
	pipe.SAdd(ctx, a.idsKey(collection), DocumentKey(id))
	pipe.SAdd(ctx, a.collectionsKey(), collection)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis index id: %w", err)
	}
	return nil
}

// Override replaces an existing document
func (a *RedisAdapter) Override(ctx context.Context, collection string, id interface{}, doc map[string]interface{}) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	ok, err := a.client.SetXX(ctx, a.docKey(collection, id), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setxx: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, DocumentKey(id))
	}
	return nil
}

// Remove deletes a document
func (a *RedisAdapter) Remove(ctx context.Context, collection string, id interface{}) error {
	n, err := a.client.Del(ctx, a.docKey(collection, id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, DocumentKey(id))
	}
	return a.client.SRem(ctx, a.idsKey(collection), DocumentKey(id)).Err()
}

// Take reads one document
func (a *RedisAdapter) Take(ctx context.Context, collection string, id interface{}) (map[string]interface{}, error) {
	data, err := a.client.Get(ctx, a.docKey(collection, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, DocumentKey(id))
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeDocument(data)
}

// Query reads all documents of a collection ordered by id
func (a *RedisAdapter) Query(ctx context.Context, collection string) ([]map[string]interface{}, error) {
	ids, err := a.client.SMembers(ctx, a.idsKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sortKeys(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.docKey(collection, id)
	}
	values, err := a.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	docs := make([]map[string]interface{}, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			// removed between SMEMBERS and MGET
			continue
		}
		doc, err := decodeDocument([]byte(data))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Includes reports whether a document exists
func (a *RedisAdapter) Includes(ctx context.Context, collection string, id interface{}) (bool, error) {
	n, err := a.client.Exists(ctx, a.docKey(collection, id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// CreateCollection registers a collection name
func (a *RedisAdapter) CreateCollection(ctx context.Context, name string) error {
	return a.client.SAdd(ctx, a.collectionsKey(), name).Err()
}

// DropCollection deletes all documents and indexes of a collection
func (a *RedisAdapter) DropCollection(ctx context.Context, name string) error {
	ids, err := a.client.SMembers(ctx, a.idsKey(name)).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}

	keys := []string{a.idsKey(name), a.indexKey(name)}
	for _, id := range ids {
		keys = append(keys, a.docKey(name, id))
	}

	pipe := a.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, a.collectionsKey(), name)
	_, err = pipe.Exec(ctx)
	return err
}

// RenameCollection moves every document of a collection to a new name
func (a *RedisAdapter) RenameCollection(ctx context.Context, oldName, newName string) error {
	exists, err := a.client.SIsMember(ctx, a.collectionsKey(), newName).Result()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: collection %s", ErrDuplicate, newName)
	}

	ids, err := a.client.SMembers(ctx, a.idsKey(oldName)).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}

	hasIndexes, err := a.client.Exists(ctx, a.indexKey(oldName)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}

	pipe := a.client.TxPipeline()
	for _, id := range ids {
		pipe.Rename(ctx, a.docKey(oldName, id), a.docKey(newName, id))
	}
	if len(ids) > 0 {
		pipe.Rename(ctx, a.idsKey(oldName), a.idsKey(newName))
	}
	if hasIndexes > 0 {
		pipe.Rename(ctx, a.indexKey(oldName), a.indexKey(newName))
	}
	pipe.SRem(ctx, a.collectionsKey(), oldName)
	pipe.SAdd(ctx, a.collectionsKey(), newName)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis rename collection: %w", err)
	}
	return nil
}

// AddIndex records index metadata. Redis documents are not indexed.
func (a *RedisAdapter) AddIndex(ctx context.Context, collection string, index IndexSpec) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	ok, err := a.client.HSetNX(ctx, a.indexKey(collection), index.Name, data).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: index %s", ErrDuplicate, index.Name)
	}
	return nil
}

// RemoveIndex deletes index metadata
func (a *RedisAdapter) RemoveIndex(ctx context.Context, collection, name string) error {
	n, err := a.client.HDel(ctx, a.indexKey(collection), name).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: index %s", ErrNotFound, name)
	}
	return nil
}

// RenameIndex renames index metadata
func (a *RedisAdapter) RenameIndex(ctx context.Context, collection, oldName, newName string) error {
	data, err := a.client.HGet(ctx, a.indexKey(collection), oldName).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: index %s", ErrNotFound, oldName)
		}
		return err
	}

	var spec IndexSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	spec.Name = newName
	renamed, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	pipe := a.client.TxPipeline()
	pipe.HDel(ctx, a.indexKey(collection), oldName)
	pipe.HSet(ctx, a.indexKey(collection), newName, renamed)
	_, err = pipe.Exec(ctx)
	return err
}

// Indexes returns the index metadata of a collection sorted by name
func (a *RedisAdapter) Indexes(ctx context.Context, collection string) ([]IndexSpec, error) {
	raw, err := a.client.HGetAll(ctx, a.indexKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	specs := make([]IndexSpec, 0, len(raw))
	for _, data := range raw {
		var spec IndexSpec
		if err := json.Unmarshal([]byte(data), &spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}
