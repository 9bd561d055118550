package storage

import (
	"context"
	"encoding/json"
	"strings"

	"reposcanner/internal/cache"
)

const nsSeparator = "\x00"

// Memory keeps values in process memory. It backs tests and the "memory"
// storage driver.
type Memory struct {
	items *cache.Cache[string, []byte]
}

func NewMemory() *Memory {
	return &Memory{items: cache.New[string, []byte]()}
}

func (m *Memory) Namespace(ns string) KV {
	return &memoryKV{items: m.items, prefix: ns + nsSeparator}
}

func (m *Memory) Close(context.Context) error {
	return nil
}

type memoryKV struct {
	items  *cache.Cache[string, []byte]
	prefix string
}

func (kv *memoryKV) Get(_ context.Context, key string, v any) (bool, error) {
	raw, ok := kv.items.Get(kv.prefix + key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *memoryKV) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	kv.items.Set(kv.prefix+key, raw, 0)
	return nil
}

func (kv *memoryKV) Remove(_ context.Context, key string) error {
	kv.items.Delete(kv.prefix + key)
	return nil
}

func (kv *memoryKV) Clear(context.Context) error {
	kv.items.DeleteFunc(func(k string) bool {
		return strings.HasPrefix(k, kv.prefix)
	})
	return nil
}
