package goroutineid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		stack string
		want  int64
	}{
		{"goroutine 123 [running]:\nmain.main()\n", 123},
		{"goroutine 7", 7},
		{"goroutine  [running]", 0},
		{"goroutine x", 0},
		{"something else\n", 0},
		{"", 0},
	} {
		assert.Equal(t, tc.want, parse([]byte(tc.stack)), "%q", tc.stack)
	}
}

func TestParseDoesNotAllocate(t *testing.T) {
	stack := []byte("goroutine 4242 [running]:\n")
	allocs := testing.AllocsPerRun(100, func() { _ = parse(stack) })
	assert.Zero(t, allocs)
}

func TestGetDistinguishesGoroutines(t *testing.T) {
	self := Get()
	require.Positive(t, self)
	assert.Equal(t, self, Get())

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = Get()
		}()
	}
	wg.Wait()
	seen := map[int64]bool{self: true}
	for _, id := range ids {
		require.Positive(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}
