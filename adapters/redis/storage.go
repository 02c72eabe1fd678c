package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gimmefy/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"GIMMEFY_REDIS_ADDR"`
	Password     string        `json:"password" env:"GIMMEFY_REDIS_PASSWORD"`
	DB           int           `json:"db" env:"GIMMEFY_REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"GIMMEFY_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"GIMMEFY_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"GIMMEFY_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"GIMMEFY_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"GIMMEFY_REDIS_WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements engine.Storage on Redis.
// Data structure:
// - user:{username}  -> JSON blob of the User record
// - users            -> set of usernames (existence index, count)
// - catalog:{kind}   -> hash of object id -> JSON blob
// - rules:levels     -> hash of level -> JSON blob
// - rules:items      -> hash of item token -> JSON blob
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed store with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

const (
	usersIndexKey = "users"
	levelRulesKey = "rules:levels"
	itemRulesKey  = "rules:items"
)

func userKey(username core.Username) string {
	return fmt.Sprintf("user:%s", username)
}

func catalogKey(kind core.ObjectKind) string {
	return fmt.Sprintf("catalog:%s", kind)
}

func (s *Store) GetUser(ctx context.Context, username core.Username) (*core.User, error) {
	data, err := s.client.Get(ctx, userKey(username)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var u core.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}

func (s *Store) InsertUser(ctx context.Context, user *core.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	ok, err := s.client.SetNX(ctx, userKey(user.Username), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %q: %w", user.Username, core.ErrConflict)
	}
	if err := s.client.SAdd(ctx, usersIndexKey, string(user.Username)).Err(); err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user *core.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.client.Set(ctx, userKey(user.Username), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := s.client.SAdd(ctx, usersIndexKey, string(user.Username)).Err(); err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, usersIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return int(n), nil
}

func (s *Store) GetObject(ctx context.Context, kind core.ObjectKind, id string) (*core.Object, error) {
	data, err := s.client.HGet(ctx, catalogKey(kind), id).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	var obj core.Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}
	return &obj, nil
}

func (s *Store) ListObjects(ctx context.Context, kind core.ObjectKind) ([]core.Object, error) {
	fields, err := s.client.HGetAll(ctx, catalogKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	out := make([]core.Object, 0, len(fields))
	for _, raw := range fields {
		var obj core.Object
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, obj)
	}
	return out, nil
}

func (s *Store) UpsertObject(ctx context.Context, kind core.ObjectKind, obj core.Object) (int, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return 0, fmt.Errorf("failed to encode object: %w", err)
	}
	if err := s.client.HSet(ctx, catalogKey(kind), obj.ID, data).Err(); err != nil {
		return 0, fmt.Errorf("failed to upsert object: %w", err)
	}
	return 1, nil
}

func (s *Store) PruneObjects(ctx context.Context, kind core.ObjectKind, keep map[string]struct{}) (int, error) {
	return s.pruneHash(ctx, catalogKey(kind), func(field string) bool {
		_, ok := keep[field]
		return ok
	})
}

func (s *Store) ListLevelRules(ctx context.Context) ([]core.RuleLevel, error) {
	fields, err := s.client.HGetAll(ctx, levelRulesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list level rules: %w", err)
	}
	out := make([]core.RuleLevel, 0, len(fields))
	for _, raw := range fields {
		var rule core.RuleLevel
		if err := json.Unmarshal([]byte(raw), &rule); err != nil {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s *Store) UpsertLevelRule(ctx context.Context, rule core.RuleLevel) (int, error) {
	data, err := json.Marshal(rule)
	if err != nil {
		return 0, fmt.Errorf("failed to encode level rule: %w", err)
	}
	if err := s.client.HSet(ctx, levelRulesKey, strconv.Itoa(rule.Level), data).Err(); err != nil {
		return 0, fmt.Errorf("failed to upsert level rule: %w", err)
	}
	return 1, nil
}

func (s *Store) PruneLevelRules(ctx context.Context, keep map[int]struct{}) (int, error) {
	return s.pruneHash(ctx, levelRulesKey, func(field string) bool {
		level, err := strconv.Atoi(field)
		if err != nil {
			return false
		}
		_, ok := keep[level]
		return ok
	})
}

func (s *Store) ListItemRules(ctx context.Context) ([]core.RuleItem, error) {
	fields, err := s.client.HGetAll(ctx, itemRulesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list item rules: %w", err)
	}
	out := make([]core.RuleItem, 0, len(fields))
	for _, raw := range fields {
		var rule core.RuleItem
		if err := json.Unmarshal([]byte(raw), &rule); err != nil {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s *Store) UpsertItemRule(ctx context.Context, rule core.RuleItem) (int, error) {
	data, err := json.Marshal(rule)
	if err != nil {
		return 0, fmt.Errorf("failed to encode item rule: %w", err)
	}
	if err := s.client.HSet(ctx, itemRulesKey, rule.Item, data).Err(); err != nil {
		return 0, fmt.Errorf("failed to upsert item rule: %w", err)
	}
	return 1, nil
}

func (s *Store) PruneItemRules(ctx context.Context, keep map[string]struct{}) (int, error) {
	return s.pruneHash(ctx, itemRulesKey, func(field string) bool {
		_, ok := keep[field]
		return ok
	})
}

// pruneHash deletes every hash field the keep predicate rejects.
func (s *Store) pruneHash(ctx context.Context, key string, keep func(field string) bool) (int, error) {
	fields, err := s.client.HKeys(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list fields of %s: %w", key, err)
	}
	var doomed []string
	for _, field := range fields {
		if !keep(field) {
			doomed = append(doomed, field)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := s.client.HDel(ctx, key, doomed...).Err(); err != nil {
		return 0, fmt.Errorf("failed to prune %s: %w", key, err)
	}
	return len(doomed), nil
}
