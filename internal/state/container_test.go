package state

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "taskportal/pkg/domain-errors"
)

type listState struct {
	Items []string
	Meta
}

func (s listState) Clone() listState {
	s.Items = slices.Clone(s.Items)
	s.Meta = s.Meta.Clone()
	return s
}

func TestContainerSnapshotsAreIsolated(t *testing.T) {
	c := New(listState{Items: []string{"a"}})

	snap := c.Get()
	snap.Items[0] = "mutated"

	assert.Equal(t, []string{"a"}, c.Get().Items)
}

func TestContainerNotifiesSubscribers(t *testing.T) {
	c := New(listState{})
	var seen [][]string
	unsubscribe := c.Subscribe(func(s listState) {
		seen = append(seen, s.Items)
	})

	c.Update(func(s *listState) { s.Items = append(s.Items, "a") })
	c.Update(func(s *listState) { s.Items = append(s.Items, "b") })
	unsubscribe()
	unsubscribe()
	c.Update(func(s *listState) { s.Items = append(s.Items, "c") })

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}}, seen)
}

func TestContainerConcurrentUpdates(t *testing.T) {
	c := New(listState{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(s *listState) { s.Items = append(s.Items, "x") })
		}()
	}
	wg.Wait()
	assert.Len(t, c.Get().Items, 50)
}

func TestSequence(t *testing.T) {
	var seq Sequence
	first := seq.Next()
	second := seq.Next()

	assert.False(t, seq.IsLatest(first))
	assert.True(t, seq.IsLatest(second))
}

func TestMetaRecord(t *testing.T) {
	t.Run("field errors replace the general message", func(t *testing.T) {
		m := Meta{Error: "stale"}
		m.Record(dErrors.Validation("invalid", map[string]string{"name": "required"}))
		assert.Empty(t, m.Error)
		assert.Equal(t, map[string]string{"name": "required"}, m.FieldErrors)
	})

	t.Run("general errors clear field errors", func(t *testing.T) {
		m := Meta{FieldErrors: map[string]string{"name": "required"}}
		m.Reject(dErrors.New(dErrors.CodeBadRequest, "Project already exists"))
		assert.False(t, m.Loading)
		assert.Nil(t, m.FieldErrors)
		assert.Equal(t, "Project already exists", m.Error)
	})

	t.Run("foreign errors use their text", func(t *testing.T) {
		var m Meta
		m.Begin()
		require.True(t, m.Loading)
		m.Reject(errors.New("boom"))
		assert.Equal(t, "boom", m.Error)
	})
}
