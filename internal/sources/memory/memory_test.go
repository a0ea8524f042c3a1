package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReturnsCopies(t *testing.T) {
	s := New([]string{"order_id"}, [][]string{{"o1"}})

	tbl, err := s.LoadOrders(context.Background())
	require.NoError(t, err)
	tbl.Rows[0][0] = "changed"
	tbl.Header[0] = "changed"

	again, err := s.LoadOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o1", again.Rows[0][0])
	assert.Equal(t, "order_id", again.Header[0])
	assert.Equal(t, 2, s.Loads())
}
