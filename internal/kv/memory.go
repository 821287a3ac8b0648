package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore はテストとローカル開発用のインメモリStore実装。
// TTLは遅延評価で、読み書きのたびに期限切れエントリを落とす。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Now は現在時刻の供給源。テストで差し替える。
	Now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // ゼロ値は無期限
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

// get は期限切れを考慮してエントリを取り出す。呼び出し側がロックを握る。
func (s *MemoryStore) get(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Get はキーの値を返す。
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set はキーに値を書き込む。
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// Incr はキーの整数値を+1して返す。存在しないキーは0起点。
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	e, ok := s.get(key)
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	s.entries[key] = memoryEntry{value: strconv.FormatInt(n, 10), expiresAt: e.expiresAt}
	return n, nil
}

// Expire は既存キーに期限を設定する。
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.get(key)
	if !ok {
		return nil
	}
	e.expiresAt = s.Now().Add(ttl)
	s.entries[key] = e
	return nil
}

// Len は生きているエントリ数を返す。テスト用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.entries {
		if _, ok := s.get(key); ok {
			n++
		}
	}
	return n
}
