package store

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data    []byte
	expires time.Time // zero = no ttl
}

// MemoryStore 进程内暂存（单实例部署 / 测试）
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]memoryItem
}

// NewMemoryStore ttl<=0 表示不过期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]memoryItem),
	}
}

func (m *MemoryStore) Put(ctx context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if m.ttl > 0 {
		exp = m.now().Add(m.ttl)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[sessionID] = memoryItem{data: buf, expires: exp}
	m.evictLocked()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[sessionID]
	if !ok {
		return nil, ErrMiss
	}
	if !item.expires.IsZero() && m.now().After(item.expires) {
		delete(m.data, sessionID)
		return nil, ErrMiss
	}
	return item.data, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

// evictLocked 清理已过期的会话
func (m *MemoryStore) evictLocked() {
	now := m.now()
	for k, v := range m.data {
		if !v.expires.IsZero() && now.After(v.expires) {
			delete(m.data, k)
		}
	}
}
