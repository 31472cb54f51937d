package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestNew(t *testing.T) {
	c := New()

	require.NotNil(t, c)
	assert.Equal(t, int64(0), c.Last(), "Initial value should be 0")

	ts := c.Tick()
	assert.Greater(t, ts, int64(0), "Tick should produce a wall-clock based stamp")
}

func TestClock_Tick(t *testing.T) {
	c := NewWithNow(fixedNow(1000))

	// Физическое время стоит на месте - метки всё равно растут
	assert.Equal(t, int64(1000), c.Tick())
	assert.Equal(t, int64(1001), c.Tick())
	assert.Equal(t, int64(1002), c.Tick())
	assert.Equal(t, int64(1002), c.Last())
}

func TestClock_Tick_FollowsWallClock(t *testing.T) {
	now := int64(1000)
	c := NewWithNow(func() time.Time { return time.UnixMilli(now) })

	assert.Equal(t, int64(1000), c.Tick())

	// Время ушло вперёд - метка следует за ним
	now = 5000
	assert.Equal(t, int64(5000), c.Tick())
}

func TestClock_Tick_Monotonicity(t *testing.T) {
	c := New()

	var previous int64
	for i := 0; i < 100; i++ {
		current := c.Tick()
		assert.Greater(t, current, previous, "Tick should always increase")
		previous = current
	}
}

func TestClock_Observe(t *testing.T) {
	tests := []struct {
		name     string
		local    int64
		remote   int64
		expected int64
	}{
		{
			name:     "remote ahead pushes clock forward",
			local:    100,
			remote:   9000,
			expected: 9000,
		},
		{
			name:     "remote behind is ignored",
			local:    9000,
			remote:   100,
			expected: 9000,
		},
		{
			name:     "remote equal is ignored",
			local:    9000,
			remote:   9000,
			expected: 9000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithNow(fixedNow(1))
			c.Restore(tt.local)

			c.Observe(tt.remote)
			assert.Equal(t, tt.expected, c.Last())
		})
	}
}

func TestClock_Observe_ThenTick(t *testing.T) {
	c := NewWithNow(fixedNow(1000))

	// Сервер прислал метку из будущего относительно наших часов
	c.Observe(50000)

	// Следующее локальное событие обязано быть позже неё
	assert.Equal(t, int64(50001), c.Tick())
}

func TestClock_Restore(t *testing.T) {
	c := NewWithNow(fixedNow(1000))
	c.Restore(7777)

	assert.Equal(t, int64(7777), c.Last())
	assert.Equal(t, int64(7778), c.Tick())
}

func TestClock_ConcurrentTicks(t *testing.T) {
	c := New()

	const goroutines = 10
	const ticksPer = 100

	var wg sync.WaitGroup
	results := make(chan int64, goroutines*ticksPer)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < ticksPer; j++ {
				results <- c.Tick()
			}
		}()
	}

	wg.Wait()
	close(results)

	// Все метки уникальны
	seen := make(map[int64]bool, goroutines*ticksPer)
	for ts := range results {
		assert.False(t, seen[ts], "Duplicate timestamp %d", ts)
		seen[ts] = true
	}
	assert.Len(t, seen, goroutines*ticksPer)
}
