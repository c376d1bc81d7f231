package store

import "sync"

// MemoryKV is an in-process KV. It is safe for concurrent use.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string][]byte)}
}

func (kv *MemoryKV) Get(key string) ([]byte, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.m[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (kv *MemoryKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = append([]byte(nil), value...)
	return nil
}

func (kv *MemoryKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}
