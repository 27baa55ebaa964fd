package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultLockStripes is the number of key-hashed mutexes in a Shared lock table.
const DefaultLockStripes = 64

// stripedLock is a fixed table of mutexes selected by key hash.
// Single-key operations hold one stripe; store-wide scans hold all stripes,
// always acquired in index order.
type stripedLock struct {
	stripes []sync.Mutex
}

func newStripedLock(n int) *stripedLock {
	if n <= 0 {
		n = DefaultLockStripes
	}
	return &stripedLock{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLock) forKey(key string) *sync.Mutex {
	return &l.stripes[xxhash.Sum64String(key)%uint64(len(l.stripes))]
}

func (l *stripedLock) lockAll() {
	for i := range l.stripes {
		l.stripes[i].Lock()
	}
}

func (l *stripedLock) unlockAll() {
	for i := len(l.stripes) - 1; i >= 0; i-- {
		l.stripes[i].Unlock()
	}
}
