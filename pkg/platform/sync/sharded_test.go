package sync

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutex_LockUnlock(t *testing.T) {
	m := NewShardedMutex()

	m.Lock(Key("MIT", "2024"))
	m.Unlock(Key("MIT", "2024"))

	// Empty key should work (defaults to shard 0)
	m.Lock("")
	m.Unlock("")
}

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			_ = m.Do(Key("MIT", "2024"), func() error {
				counter++
				return nil
			})
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardedMutex_DoReturnsError(t *testing.T) {
	m := NewShardedMutex()
	sentinel := errors.New("write failed")

	err := m.Do("k", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	// lock must have been released
	m.Lock("k")
	m.Unlock("k")
}

func TestShardedMutex_ShardDistribution(t *testing.T) {
	m := NewShardedMutex()

	shards := make(map[int]bool)
	keys := []string{
		Key("MIT", "2023"), Key("MIT", "2024"), Key("Stanford", "2024"),
		Key("Addis Ababa University", "2024"), Key("ETH", "2022"), Key("Oxford", "2021"),
	}
	for _, key := range keys {
		shards[m.shardFor(key)] = true
	}

	assert.GreaterOrEqual(t, len(shards), 3, "expected keys to distribute across multiple shards")
}

func TestKey(t *testing.T) {
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Equal(t, Key("MIT", "2024"), Key("MIT", "2024"))
}
