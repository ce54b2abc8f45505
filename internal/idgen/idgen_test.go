package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demeter/internal/models"
)

func TestNextIsMonotonic(t *testing.T) {
	g, err := New(1, 1)
	require.NoError(t, err)

	prev := g.Next()
	for i := 0; i < 1000; i++ {
		next := g.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNextIsUniqueAcrossGoroutines(t *testing.T) {
	g, err := New(2, 3)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen = map[models.ID]struct{}{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := g.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8*500)
}

func TestNewRejectsOutOfRange(t *testing.T) {
	_, err := New(32, 0)
	assert.Error(t, err)
	_, err = New(0, -1)
	assert.Error(t, err)
}
