package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "documents/a.pdf", strings.NewReader("hello"), 5, "application/pdf"))
	assert.Equal(t, 1, m.Len())

	rc, err := m.Get(ctx, "documents/a.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, m.Remove(ctx, "documents/a.pdf"))
	_, err = m.Get(ctx, "documents/a.pdf")
	assert.Error(t, err)
}
