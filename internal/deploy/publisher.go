package deploy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/KeystonCloud/satellite/internal/metrics"
	"github.com/KeystonCloud/satellite/internal/model"
)

// ContentStore adds opaque bytes to a content-addressable store.
type ContentStore interface {
	Add(ctx context.Context, data []byte) (string, error)
}

// NameService manages naming keys and the names they author.
type NameService interface {
	ListKeys(ctx context.Context) ([]model.NamingKey, error)
	GenKey(ctx context.Context, name string) (model.NamingKey, error)
	Publish(ctx context.Context, keyName, cid string) (model.PublishedName, error)
}

// Timeouts bound each outbound call. A zero value means no per-call bound
// beyond the caller's context.
type Timeouts struct {
	Store      time.Duration
	Key        time.Duration
	Publish    time.Duration
	NodeDeploy time.Duration
}

// Publisher sequences calls to the content store and the name service.
// It never retries.
type Publisher struct {
	store    ContentStore
	names    NameService
	timeouts Timeouts
	keys     singleflight.Group
}

func NewPublisher(store ContentStore, names NameService, timeouts Timeouts) *Publisher {
	return &Publisher{store: store, names: names, timeouts: timeouts}
}

// AddContent stores data and returns its CID. Failures are *StoreError.
func (p *Publisher) AddContent(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeouts.Store)
	defer cancel()

	start := time.Now()
	cid, err := p.store.Add(ctx, data)
	observeStage("add_content", start, err)
	if err != nil {
		return "", &StoreError{Err: err}
	}
	return cid, nil
}

// FindOrCreateKey returns the naming key called appName, creating it if the
// name service has none. Concurrent calls for the same name in this process
// share one lookup, so they cannot create two keys. The shared lookup is
// bounded by the key timeout only; each caller stops waiting when its own
// ctx ends. Failures are *KeyError.
func (p *Publisher) FindOrCreateKey(ctx context.Context, appName string) (model.NamingKey, error) {
	lookupCtx := context.WithoutCancel(ctx)
	ch := p.keys.DoChan(appName, func() (any, error) {
		return p.findOrCreateKey(lookupCtx, appName)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return model.NamingKey{}, &KeyError{App: appName, Err: res.Err}
		}
		return res.Val.(model.NamingKey), nil
	case <-ctx.Done():
		return model.NamingKey{}, &KeyError{App: appName, Err: ctx.Err()}
	}
}

func (p *Publisher) findOrCreateKey(ctx context.Context, appName string) (model.NamingKey, error) {
	listCtx, cancel := withTimeout(ctx, p.timeouts.Key)
	start := time.Now()
	keys, err := p.names.ListKeys(listCtx)
	cancel()
	observeStage("list_keys", start, err)
	if err != nil {
		return model.NamingKey{}, fmt.Errorf("list keys: %w", err)
	}

	for _, k := range keys {
		if k.Name == appName {
			return k, nil
		}
	}

	genCtx, cancel := withTimeout(ctx, p.timeouts.Key)
	defer cancel()
	start = time.Now()
	key, err := p.names.GenKey(genCtx, appName)
	observeStage("gen_key", start, err)
	if err != nil {
		return model.NamingKey{}, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// PublishName points the name authored by key at cid. Failures are
// *PublishError.
func (p *Publisher) PublishName(ctx context.Context, key model.NamingKey, cid string) (model.PublishedName, error) {
	ctx, cancel := withTimeout(ctx, p.timeouts.Publish)
	defer cancel()

	start := time.Now()
	pub, err := p.names.Publish(ctx, key.Name, cid)
	observeStage("publish_name", start, err)
	if err != nil {
		return model.PublishedName{}, &PublishError{Key: key.Name, CID: cid, Err: err}
	}
	return pub, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func observeStage(stage string, start time.Time, err error) {
	metrics.StageDuration.WithLabelValues(stage, metrics.Result(err)).Observe(time.Since(start).Seconds())
}
