package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresContent(t *testing.T) {
	t.Parallel()

	a := New()
	uri, err := a.PutObject(context.Background(), "sites/abc/doc.llms.txt", "text/plain", strings.NewReader("# Example\n"))
	require.NoError(t, err)
	require.Equal(t, "memory://sites/abc/doc.llms.txt", uri)

	content, ok := a.Get("sites/abc/doc.llms.txt")
	require.True(t, ok)
	require.Equal(t, "# Example\n", string(content))
}

func TestGetMissingPath(t *testing.T) {
	t.Parallel()

	a := New()
	_, ok := a.Get("missing")
	require.False(t, ok)
}
