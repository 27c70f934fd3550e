//go:build integration

package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"taskportal/pkg/platform/sentinel"
	"taskportal/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.NewRedisContainer(t)

	suite.Run(t, &contractSuite{open: func(t *testing.T) Store {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedis(rc.Client, "token")
	}})

	t.Run("ttl expires the token", func(t *testing.T) {
		ctx := context.Background()
		store := NewRedis(rc.Client, "short", WithTTL(time.Second))
		require.NoError(t, store.Save(ctx, "abc"))
		require.Eventually(t, func() bool {
			_, err := store.Load(ctx)
			return err == sentinel.ErrNotFound
		}, 5*time.Second, 100*time.Millisecond)
	})
}
