package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-process Store backend used by tests and single-node
// development. TTLs are honored lazily: expired keys are dropped on access.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	sets    map[string]map[string]struct{}
	numbers map[string]int64
	expiry  map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string][]byte),
		sets:    make(map[string]map[string]struct{}),
		numbers: make(map[string]int64),
		expiry:  make(map[string]time.Time),
	}
}

// dropIfExpired must be called with the lock held.
func (m *MemoryStore) dropIfExpired(key string) {
	deadline, ok := m.expiry[key]
	if !ok || time.Now().Before(deadline) {
		return
	}
	delete(m.values, key)
	delete(m.sets, key)
	delete(m.numbers, key)
	delete(m.expiry, key)
}

// touch must be called with the lock held.
func (m *MemoryStore) touch(key string, ttl time.Duration) {
	if ttl > 0 {
		m.expiry[key] = time.Now().Add(ttl)
	}
}

func (m *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	data, ok := m.values[key]
	if !ok {
		return ErrKeyNotFound
	}
	return json.Unmarshal(data, dest)
}

func (m *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	m.touch(key, ttl)
	return nil
}

func (m *MemoryStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	data, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStore) SetBytes(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.values[key] = stored
	m.touch(key, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.sets, key)
		delete(m.numbers, key)
		delete(m.expiry, key)
	}
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	if _, ok := m.values[key]; ok {
		return true, nil
	}
	if _, ok := m.sets[key]; ok {
		return true, nil
	}
	_, ok := m.numbers[key]
	return ok, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(key, ttl)
	return nil
}

func (m *MemoryStore) SetAdd(_ context.Context, key string, ttl time.Duration, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	m.touch(key, ttl)
	return nil
}

func (m *MemoryStore) SetRemove(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	return nil
}

func (m *MemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	set := m.sets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members, nil
}

func (m *MemoryStore) SetCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	return int64(len(m.sets[key])), nil
}

func (m *MemoryStore) SetIsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *MemoryStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	m.numbers[key]++
	m.touch(key, ttl)
	return m.numbers[key], nil
}

func (m *MemoryStore) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropIfExpired(key)
	return m.numbers[key], nil
}
