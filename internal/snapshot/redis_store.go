package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is an alternate Store backend keyed by sanitized server name,
// useful when multiple scanner instances need to share drift state.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore wraps an existing redis client. keyPrefix namespaces every
// key this store touches (e.g. "mcpguard:snapshot:").
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "mcpguard:snapshot:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStore) key(serverName string) string {
	return r.keyPrefix + SanitizeServerName(serverName)
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, serverName string) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key(serverName)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot from redis: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &s, nil
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, serverName string, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(serverName), data, 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot to redis: %w", err)
	}
	return nil
}

// Compare implements Store.
func (r *RedisStore) Compare(ctx context.Context, serverName string, currentTools []ToolInfo) (*Diff, error) {
	return compare(ctx, r, serverName, currentTools)
}
