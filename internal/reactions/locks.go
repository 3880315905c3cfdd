package reactions

import "sync"

// keyedMutex serializes work per key, dropping the lock once nobody holds
// or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu      sync.Mutex
	waiters int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock func
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, exists := k.locks[key]
	if !exists {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.waiters++
	k.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		k.mu.Lock()
		lock.waiters--
		if lock.waiters == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
