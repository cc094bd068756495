package allocation

import (
	"slices"
	"sync"
)

// keyLocker hands out mutual exclusion per string key. Keys of one call
// are acquired in sorted order, which gives every caller the same global
// order and rules out lock-order deadlocks.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until every key is held and returns the function releasing
// them. Duplicate keys are collapsed.
func (l *keyLocker) Lock(keys ...string) (unlock func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, k := range keys {
		kl := l.ref(k)
		kl.mu.Lock()
		held = append(held, kl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.unref(keys[i])
		}
	}
}

func (l *keyLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *keyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports how many keys currently have holders or waiters.
func (l *keyLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// withLocks runs fn while holding keys. Callers publish events only after
// it returns, so a slow Notifier never holds up writers.
func (e *Engine) withLocks(keys []string, fn func() error) error {
	unlock := e.locks.Lock(keys...)
	defer unlock()
	return fn()
}

func taskKey(id string) string     { return "task:" + id }
func employeeKey(id string) string { return "employee:" + id }
