package cache

import "sync"

// KeyedMutex 为每个 key 提供独立互斥锁，不同 key 之间互不阻塞。
// 锁对象按引用计数回收，最后一个持有者释放后从表中删除。
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex 返回一个空的 KeyedMutex。零值同样可用。
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entryLock)}
}

// WithLock 在持有 key 对应锁的情况下执行 fn，并返回 fn 的错误。
func (m *KeyedMutex) WithLock(key string, fn func() error) error {
	unlock := m.Lock(key)
	defer unlock()
	return fn()
}

// Lock 阻塞直到获得 key 的锁，返回的函数负责释放。
func (m *KeyedMutex) Lock(key string) func() {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*entryLock)
	}
	lock := m.locks[key]
	if lock == nil {
		lock = &entryLock{}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// held 返回当前仍被引用的 key 数量。
func (m *KeyedMutex) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
