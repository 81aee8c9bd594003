package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// RedisStore keeps each task as a JSON document under task:<id> and indexes
// them per owner in the set owner:<id>:tasks. Documents may carry legacy
// status labels; they are canonicalized when decoded.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// DialRedis connects using a redis:// URL.
func DialRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func taskKey(id string) string {
	return "task:" + id
}

func ownerKey(ownerID string) string {
	return "owner:" + ownerID + ":tasks"
}

// Save writes a task document and indexes it under its owner. A task saved
// under a new owner leaves the previous owner's index.
func (r *RedisStore) Save(ctx context.Context, t task.Task) error {
	if t.ID == "" || t.OwnerID == "" {
		return errors.New("save task: id and owner are required")
	}
	data, err := sonic.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	key := taskKey(t.ID)
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		prevOwner := ""
		prev, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var old task.Task
			if err := sonic.Unmarshal(prev, &old); err == nil {
				prevOwner = old.OwnerID
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if prevOwner != "" && prevOwner != t.OwnerID {
				p.SRem(ctx, ownerKey(prevOwner), t.ID)
			}
			p.Set(ctx, key, data, 0)
			p.SAdd(ctx, ownerKey(t.OwnerID), t.ID)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// FetchTasksForOwner loads every task indexed under the owner. Index entries
// whose document is gone are skipped.
func (r *RedisStore) FetchTasksForOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	ids, err := r.rdb.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list owner %s: %w", ownerID, err)
	}
	if len(ids) == 0 {
		return []task.Task{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load owner %s: %w", ownerID, err)
	}

	tasks := make([]task.Task, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var t task.Task
		if err := sonic.UnmarshalString(s, &t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", ids[i], err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateTaskStatus rewrites the document's status under WATCH so a
// concurrent writer cannot be overwritten with stale fields.
func (r *RedisStore) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	key := taskKey(taskID)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("update task status %s: %w", taskID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var t task.Task
		if err := sonic.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("decode task %s: %w", taskID, err)
		}
		t.Status = status
		out, err := sonic.Marshal(t)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update task status %s: %w", taskID, err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
