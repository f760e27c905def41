package controller

import "sync"

// keyedMutex serializes reconciliation per organization. Two concurrent
// syncs for the same org (login racing cron, say) would otherwise both run
// read-then-write and leave duplicate rows for the dedupe pass to clean up.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*orgLock
}

type orgLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*orgLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &orgLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
