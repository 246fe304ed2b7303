package rebuild

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditQueue_FIFO(t *testing.T) {
	q := newEditQueue()
	for _, from := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(request{edit: RebuildFrom{From: from}}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		r, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, r.edit.(RebuildFrom).From)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEditQueue_WaitSignals(t *testing.T) {
	q := newEditQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(request{edit: RebuildFrom{}})
	}()

	select {
	case <-q.Wait():
		_, ok := q.TryDequeue()
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no signal")
	}
}

func TestEditQueue_CloseReturnsPending(t *testing.T) {
	q := newEditQueue()
	q.Enqueue(request{edit: RebuildFrom{From: "x"}})

	assert.False(t, q.Closed())
	rest := q.Close()
	assert.True(t, q.Closed())
	require.Len(t, rest, 1)
	assert.False(t, q.Enqueue(request{edit: RebuildFrom{}}))
	assert.Nil(t, q.Close(), "second close is a no-op")

	_, open := <-q.Wait()
	assert.False(t, open)
}

func TestEditQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEditQueue()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				q.Enqueue(request{edit: RebuildFrom{}})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, q.Len())
}
