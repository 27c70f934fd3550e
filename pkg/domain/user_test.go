package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "taskportal/pkg/domain-errors"
)

func TestRole(t *testing.T) {
	assert.True(t, Role("ADMIN").IsAdmin())
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleEmployee.IsAdmin())

	r, err := ParseRole("Employee")
	require.NoError(t, err)
	assert.Equal(t, RoleEmployee, r)

	_, err = ParseRole("root")
	assert.Error(t, err)
}

func TestUserAcceptsBothIDSpellings(t *testing.T) {
	var a, b User
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","name":"Alice"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","name":"Alice"}`), &b))
	assert.Equal(t, UserID("u1"), a.ID)
	assert.Equal(t, a, b)
}

func TestUserRef(t *testing.T) {
	t.Run("bare id", func(t *testing.T) {
		var r UserRef
		require.NoError(t, json.Unmarshal([]byte(`"u1"`), &r))
		assert.Equal(t, UserID("u1"), r.ID)
		assert.Nil(t, r.User)
		assert.True(t, r.Refers("u1"))
	})

	t.Run("populated object", func(t *testing.T) {
		var r UserRef
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"u2","name":"Bob"}`), &r))
		require.NotNil(t, r.User)
		assert.Equal(t, "Bob", r.Display())
		assert.True(t, r.Refers("u2"))
		assert.False(t, r.Refers("u1"))
	})

	t.Run("null is zero", func(t *testing.T) {
		var r UserRef
		require.NoError(t, json.Unmarshal([]byte(`null`), &r))
		assert.True(t, r.IsZero())
		assert.False(t, r.Refers(""))
	})

	t.Run("task with either assignee shape", func(t *testing.T) {
		var tasks []Task
		raw := `[{"_id":"t1","title":"a","assignee":"u1","projectId":"p1"},
		         {"_id":"t2","title":"b","assignee":{"_id":"u1","name":"Alice"},"projectId":"p1"}]`
		require.NoError(t, json.Unmarshal([]byte(raw), &tasks))
		require.Len(t, tasks, 2)
		assert.True(t, tasks[0].Assignee.Refers("u1"))
		assert.True(t, tasks[1].Assignee.Refers("u1"))
	})
}

func TestTaskInputValidate(t *testing.T) {
	err := TaskInput{Status: "Blocked", Deadline: "31-12-2025"}.Validate()
	require.Error(t, err)
	fields := dErrors.Fields(err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "projectId")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "deadline")

	ok := TaskInput{Title: "Write docs", ProjectID: "p1"}.WithDefaults()
	assert.NoError(t, ok.Validate())
	assert.Equal(t, StatusToDo, ok.Status)
	assert.Equal(t, PriorityMedium, ok.Priority)
}
