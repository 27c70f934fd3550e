package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

type fakeSession string

func (f fakeSession) Token() string { return string(f) }

type fakeAPI struct {
	users []domain.User
	err   error
	calls int
}

func (f *fakeAPI) ListUsers(_ context.Context, token string) ([]domain.User, error) {
	f.calls++
	return f.users, f.err
}

func TestFetchAll(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the directory", func(t *testing.T) {
		fake := &fakeAPI{users: []domain.User{{ID: "u1", Email: "a@example.com"}, {ID: "u2", Email: "b@example.com"}}}
		store := New(fake, fakeSession("tok"))

		require.NoError(t, store.FetchAll(ctx))

		assert.Len(t, store.State().Users, 2)
		assert.Equal(t, []PickerOption{
			{Label: "a@example.com", Value: "u1"},
			{Label: "b@example.com", Value: "u2"},
		}, store.Options())
	})

	t.Run("missing list becomes empty", func(t *testing.T) {
		store := New(&fakeAPI{}, fakeSession("tok"))
		require.NoError(t, store.FetchAll(ctx))
		assert.NotNil(t, store.State().Users)
		assert.Empty(t, store.Options())
	})

	t.Run("forbidden for employees", func(t *testing.T) {
		fake := &fakeAPI{err: dErrors.New(dErrors.CodeForbidden, "Access denied")}
		store := New(fake, fakeSession("tok"))
		err := store.FetchAll(ctx)
		assert.True(t, dErrors.IsAuth(err))
		assert.Equal(t, "Access denied", store.State().Error)
		assert.False(t, store.State().Loading)
	})

	t.Run("no token no call", func(t *testing.T) {
		fake := &fakeAPI{}
		store := New(fake, fakeSession(""))
		assert.ErrorIs(t, store.FetchAll(ctx), dErrors.ErrLoginRequired)
		assert.Zero(t, fake.calls)
	})
}
