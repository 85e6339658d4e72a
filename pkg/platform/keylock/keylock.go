// Package keylock serializes work per entity key without a global lock.
package keylock

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Striped maps keys onto a fixed set of mutexes. Two keys may share a
// stripe, so callers must never hold one key while taking another.
type Striped struct {
	shards [shardCount]sync.Mutex
}

func New() *Striped {
	return &Striped{}
}

func (s *Striped) Lock(key string)   { s.shards[shardFor(key)].Lock() }
func (s *Striped) Unlock(key string) { s.shards[shardFor(key)].Unlock() }

// Do runs fn while holding the stripe for key.
func (s *Striped) Do(key string, fn func() error) error {
	s.Lock(key)
	defer s.Unlock(key)
	return fn()
}

// shardFor is 0 for the empty key.
func shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
