package keylock

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStriped_LockUnlock(t *testing.T) {
	s := New()

	s.Lock("donor-1")
	s.Unlock("donor-1")

	s.Lock("")
	s.Unlock("")
}

func TestStriped_SameKeySerializes(t *testing.T) {
	s := New()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			_ = s.Do("same-key", func() error {
				counter++
				return nil
			})
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestStriped_DoReturnsFnError(t *testing.T) {
	s := New()
	want := errors.New("boom")

	err := s.Do("k", func() error { return want })
	assert.ErrorIs(t, err, want)

	// stripe was released
	s.Lock("k")
	s.Unlock("k")
}

func TestShardFor_Distribution(t *testing.T) {
	shards := make(map[int]bool)
	for i := range 20 {
		shards[shardFor(fmt.Sprintf("donor-%d", i))] = true
	}
	assert.GreaterOrEqual(t, len(shards), 5)
	assert.Equal(t, 0, shardFor(""))
	assert.Equal(t, shardFor("abc"), shardFor("abc"))
}
