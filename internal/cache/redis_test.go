package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsANoOp(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	require.NoError(t, c.SetObject(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var dest map[string]int
	found, err := c.GetObject(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Delete(ctx, "k"))

	release, err := c.Lock(ctx, "branch:1")
	require.NoError(t, err)
	release()

	assert.NoError(t, c.Close())
}

func TestConnectWithoutAddressDisablesRedis(t *testing.T) {
	logger := logrus.New()
	assert.Nil(t, Connect(context.Background(), "", logger))
}
