// Package keylock serializes work per string key with a fixed set of
// mutex shards. Distinct keys may share a shard.
package keylock

import (
	"hash/fnv"
	"sync"
)

type Locker struct {
	shards []sync.Mutex
}

// New returns a Locker with n shards (at least one).
func New(n int) *Locker {
	if n < 1 {
		n = 1
	}
	return &Locker{shards: make([]sync.Mutex, n)}
}

func (l *Locker) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.shards[h.Sum32()%uint32(len(l.shards))]
}

// Lock acquires the shard of key and returns its unlock func.
func (l *Locker) Lock(key string) func() {
	m := l.shard(key)
	m.Lock()
	return m.Unlock
}

// PairKey is the same for (a, b) and (b, a).
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
