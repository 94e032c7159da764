package timer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound 存储中没有对应的 key
var ErrNotFound = errors.New("timer state not found")

// Store 持久化 key-value 存储，浏览器 localStorage 的对应物
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Clock 墙上时钟
type Clock interface {
	Now() time.Time
}

// SystemClock 使用 time.Now
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Logger 记录持久化降级
type Logger interface {
	Warn(msg string, kvs ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...interface{}) {}

// MemoryStore 进程内存储，测试和无持久化场景使用
type MemoryStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
