package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "out/fortifications.csv", "text/csv", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://out/fortifications.csv", uri)

	payload[0] = 'C'
	obj, ok := store.Get("out/fortifications.csv")
	require.True(t, ok)
	assert.Equal(t, "content", string(obj.Data), "stored copy must be independent of the caller's buffer")
	assert.Equal(t, "text/csv", obj.ContentType)

	obj.Data[0] = 'X'
	again, _ := store.Get("out/fortifications.csv")
	assert.Equal(t, "content", string(again.Data), "Get must hand out copies")
}

func TestBlobStorePaths(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, p := range []string{"b.csv", "a.csv"} {
		_, err := store.PutObject(context.Background(), p, "", bytes.NewReader(nil))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a.csv", "b.csv"}, store.Paths())

	_, ok := store.Get("missing.csv")
	assert.False(t, ok)
}
