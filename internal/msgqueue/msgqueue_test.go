package msgqueue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderingFlushesInSlotOrder(t *testing.T) {
	q, sink := NewBufferQueue(3)
	w0 := q.Writer()
	w1 := q.Writer()
	w2 := q.Writer()

	require.NoError(t, w1.Push([]byte("b")))
	require.NoError(t, w2.Push([]byte("c")))
	assert.Empty(t, sink.Bytes(), "out-of-turn writers must be buffered, not forwarded")

	require.NoError(t, w0.Push([]byte("a")))
	require.NoError(t, w0.Close())
	assert.Equal(t, "a", string(sink.Bytes()))

	require.NoError(t, w1.Close())
	assert.Equal(t, "ab", string(sink.Bytes()))

	require.NoError(t, w2.Close())
	assert.Equal(t, "abc", string(sink.Bytes()))
}

func TestLiveWriterStreamsDirectly(t *testing.T) {
	q, sink := NewBufferQueue(1)
	w := q.Writer()
	require.NoError(t, w.Push([]byte("x")))
	assert.Equal(t, "x", string(sink.Bytes()), "the current slot's writes should pass straight through")
	require.NoError(t, w.Close())
}

func TestCloneSharesSlotUntilAllClosed(t *testing.T) {
	q, sink := NewBufferQueue(1)
	w := q.Writer()
	clone := w.Clone()

	require.NoError(t, w.Push([]byte("1")))
	require.NoError(t, w.Close())
	// clone still outstanding: slot must not finish yet, but since it's
	// the live slot writes still pass through directly.
	require.NoError(t, clone.Push([]byte("2")))
	assert.Equal(t, "12", string(sink.Bytes()))
	require.NoError(t, clone.Close())
}

func TestCachePersistedOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cache")

	q, _ := NewBufferQueue(1)
	w := q.Writer()
	w.SetCachePath(path)
	require.NoError(t, w.Push([]byte("hello")))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEmptyCacheRemovesStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cache")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	q, _ := NewBufferQueue(1)
	w := q.Writer()
	w.SetCachePath(path)
	require.NoError(t, w.Close())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNestedQueueRespectsOuterOrder(t *testing.T) {
	q, sink := NewBufferQueue(2)
	outer0 := q.Writer()
	outer1 := q.Writer()

	inner := outer0.Nested(2)
	i0 := inner.Writer()
	i1 := inner.Writer()
	require.NoError(t, i1.Push([]byte("y")))
	require.NoError(t, i0.Push([]byte("x")))
	require.NoError(t, i0.Close())
	require.NoError(t, i1.Close())
	require.NoError(t, outer0.Close())

	require.NoError(t, outer1.Push([]byte("z")))
	require.NoError(t, outer1.Close())

	assert.Equal(t, "xyz", string(sink.Bytes()))
}
