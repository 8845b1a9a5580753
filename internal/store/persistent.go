// Package store provides reactive state containers mirrored to a key/value
// store, so editing state survives a reload.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"genesis/internal/storage"
)

// Persistent holds one value of type T under a storage key. Every write is
// mirrored to the backing KV; a nil KV keeps the value in memory only.
//
// Values are handed out as-is: callers must treat reference types (slices,
// maps) returned by Get as read-only.
type Persistent[T any] struct {
	mu     sync.Mutex
	kv     storage.KV
	key    string
	value  T
	subs   map[int]func(T)
	nextID int
	logger *slog.Logger
}

// Load restores the value stored under key, or fallback when there is none.
// A stored value that cannot be decoded is logged, removed and replaced by
// fallback; Load never fails.
func Load[T any](kv storage.KV, key string, fallback T, logger *slog.Logger) *Persistent[T] {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Persistent[T]{
		kv:     kv,
		key:    key,
		value:  fallback,
		subs:   make(map[int]func(T)),
		logger: logger,
	}
	if kv == nil {
		return p
	}

	raw, ok, err := kv.Get(key)
	if err != nil {
		logger.Warn("read persisted state", "key", key, "error", err)
		return p
	}
	if !ok {
		return p
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn("discarding malformed persisted state", "key", key, "error", err)
		if err := kv.Delete(key); err != nil {
			logger.Warn("delete malformed state", "key", key, "error", err)
		}
		return p
	}
	p.value = v
	return p
}

// Key returns the storage key this value lives under.
func (p *Persistent[T]) Key() string { return p.key }

func (p *Persistent[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set replaces the value and writes it through. The in-memory value is
// updated even when the write fails, the error is returned to the caller.
func (p *Persistent[T]) Set(v T) error {
	p.mu.Lock()
	p.value = v
	subs := p.subscribers()
	p.mu.Unlock()

	err := p.persist(v)
	for _, fn := range subs {
		fn(v)
	}
	return err
}

// Update applies fn to the current value and stores the result.
func (p *Persistent[T]) Update(fn func(T) T) error {
	p.mu.Lock()
	v := fn(p.value)
	p.value = v
	subs := p.subscribers()
	p.mu.Unlock()

	err := p.persist(v)
	for _, s := range subs {
		s(v)
	}
	return err
}

// Refresh re-reads the stored value, picking up writes made by another
// process sharing the same store. A missing key keeps the current value; a
// malformed one is reported and also keeps it.
func (p *Persistent[T]) Refresh() (T, error) {
	if p.kv == nil {
		return p.Get(), nil
	}
	raw, ok, err := p.kv.Get(p.key)
	if err != nil {
		return p.Get(), fmt.Errorf("refresh %s: %w", p.key, err)
	}
	if !ok {
		return p.Get(), nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return p.Get(), fmt.Errorf("decode %s: %w", p.key, err)
	}

	p.mu.Lock()
	p.value = v
	subs := p.subscribers()
	p.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
	return v, nil
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (p *Persistent[T]) Subscribe(fn func(T)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Persistent[T]) subscribers() []func(T) {
	out := make([]func(T), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

func (p *Persistent[T]) persist(v T) error {
	if p.kv == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.key, err)
	}
	if err := p.kv.Set(p.key, string(data)); err != nil {
		return fmt.Errorf("persist %s: %w", p.key, err)
	}
	return nil
}
