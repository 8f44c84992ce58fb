package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, err := uuid.Parse(id)
	require.NoError(t, err)

	_, ok = FromContext(context.Background())
	require.False(t, ok, "unexpected id in empty context")
}

func TestEnsureKeepsExistingID(t *testing.T) {
	ctx, id := NewContext(context.Background())
	same, got := Ensure(ctx)
	require.Equal(t, id, got)
	require.Equal(t, ctx, same)

	_, fresh := Ensure(context.Background())
	require.NotEmpty(t, fresh)
	require.NotEqual(t, id, fresh)
}
