package service

import "sync"

// KeyMutex serializes work per string key. Entries are refcounted and
// removed when the last holder unlocks, so the map stays bounded by
// the number of keys currently in use.
type KeyMutex struct {
	mu      sync.Mutex
	entries map[string]*keyMutexEntry
}

type keyMutexEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyMutex creates an empty keyed mutex
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{entries: make(map[string]*keyMutexEntry)}
}

// Lock acquires the mutex for key
func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyMutexEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for key
func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if ok {
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
	}
	k.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
