// Package nodedir keeps a shared, expiring directory of live nodes in Redis.
//
// Each node is stored under nodes:<id> with a TTL equal to the staleness
// window, so entries disappear on their own when heartbeats stop. Several
// control-plane replicas can select deployment targets from the same
// directory.
package nodedir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/KeystonCloud/satellite/internal/model"
)

const keyPrefix = "nodes:"

// ErrNotFound is returned when touching a node that has no live entry.
var ErrNotFound = errors.New("node not in directory")

// RedisClient is the subset of *redis.Client the directory uses.
type RedisClient interface {
	SetEX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// entry is the stored value, kept compatible with the node agents' format.
type entry struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	LastSeen int64  `json:"last_seen"`
}

type Directory struct {
	client RedisClient
	ttl    time.Duration
	now    func() time.Time
}

func New(client RedisClient, ttl time.Duration) *Directory {
	return &Directory{client: client, ttl: ttl, now: time.Now}
}

// Put writes rec and resets its expiry.
func (d *Directory) Put(ctx context.Context, rec model.NodeRecord) error {
	seen := rec.LastHeartbeat
	if seen.IsZero() {
		seen = d.now()
	}
	b, err := json.Marshal(entry{IP: rec.Address.Host, Port: rec.Address.Port, LastSeen: seen.Unix()})
	if err != nil {
		return fmt.Errorf("encode node %s: %w", rec.ID, err)
	}
	if err := d.client.SetEX(ctx, keyPrefix+rec.ID, b, d.ttl).Err(); err != nil {
		return fmt.Errorf("put node %s: %w", rec.ID, err)
	}
	return nil
}

// Touch refreshes last_seen and the expiry of an existing entry.
func (d *Directory) Touch(ctx context.Context, id string) error {
	raw, err := d.client.Get(ctx, keyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("touch node %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("touch node %s: %w", id, err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return fmt.Errorf("decode node %s: %w", id, err)
	}
	return d.Put(ctx, model.NodeRecord{
		ID:            id,
		Address:       model.Address{Host: e.IP, Port: e.Port},
		LastHeartbeat: d.now(),
	})
}

func (d *Directory) Remove(ctx context.Context, id string) error {
	if err := d.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("remove node %s: %w", id, err)
	}
	return nil
}

// Nodes lists every unexpired entry, ordered by ID. Entries that cannot be
// decoded or vanished between SCAN and MGET are skipped.
func (d *Directory) Nodes(ctx context.Context) ([]model.NodeRecord, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := d.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan nodes: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := d.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}

	seen := make(map[string]bool, len(keys))
	nodes := make([]model.NodeRecord, 0, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		id := strings.TrimPrefix(keys[i], keyPrefix)
		if seen[id] {
			continue
		}
		seen[id] = true
		nodes = append(nodes, model.NodeRecord{
			ID:            id,
			Address:       model.Address{Host: e.IP, Port: e.Port},
			LastHeartbeat: time.Unix(e.LastSeen, 0),
		})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}
