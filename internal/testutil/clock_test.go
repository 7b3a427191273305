package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_Frozen(t *testing.T) {
	clock := NewFixedClock(1700000000)

	assert.Equal(t, int64(1700000000), clock.Now().Unix())
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestFixedClock_SetAndAdvance(t *testing.T) {
	clock := NewFixedClock(100)

	clock.Set(200)
	assert.Equal(t, int64(200), clock.Now().Unix())

	got := clock.Advance(5 * time.Second)
	assert.Equal(t, int64(205), got.Unix())
	assert.Equal(t, int64(205), clock.Now().Unix())
}

func TestFixedClock_ConcurrentAdvance(t *testing.T) {
	clock := NewFixedClock(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), clock.Now().Unix())
}
