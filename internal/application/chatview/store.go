package chatview

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"

	"contextual-chat/pkg/metrics"
)

// Factory 为新会话创建视图
type Factory func(id string) *View

// Store 会话存储，超出容量时淘汰最久未访问的会话
type Store struct {
	mu      sync.Mutex
	cache   *lru.Cache
	factory Factory
}

// NewStore 创建会话存储
func NewStore(capacity int, factory Factory) *Store {
	if capacity <= 0 {
		capacity = 1024
	}
	cache := lru.New(capacity)
	cache.OnEvicted = func(lru.Key, interface{}) {
		metrics.ViewSessions.Dec()
	}
	return &Store{cache: cache, factory: factory}
}

// Get 查找会话
func (s *Store) Get(id string) (*View, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*View), true
}

// GetOrCreate 查找会话，不存在时创建新会话，created 表示是否新建
func (s *Store) GetOrCreate(id string) (view *View, created bool) {
	if v, ok := s.Get(id); ok {
		return v, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view = s.factory(uuid.NewString())
	s.cache.Add(view.ID(), view)
	metrics.ViewSessions.Inc()
	return view, true
}

// Delete 删除会话
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
}

// Len 当前会话数
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
