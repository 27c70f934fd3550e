package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEntityIDSpellings covers the "_id" and "id" spellings on every entity.
func TestEntityIDSpellings(t *testing.T) {
	t.Run("project prefers _id", func(t *testing.T) {
		var p Project
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","id":"other","name":"Apollo"}`), &p))
		assert.Equal(t, ProjectID("p1"), p.ID)
		assert.Equal(t, "Apollo", p.Name)
	})

	t.Run("task falls back to id", func(t *testing.T) {
		var task Task
		require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","title":"Fuel","assignee":"u1"}`), &task))
		assert.Equal(t, TaskID("t1"), task.ID)
		assert.True(t, task.Assignee.Refers("u1"))
	})

	t.Run("missing id stays empty", func(t *testing.T) {
		var u User
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Ada"}`), &u))
		assert.Empty(t, u.ID)
	})
}

func TestTypeDistinction(t *testing.T) {
	userID := UserID("abc")
	projectID := ProjectID("abc")

	// Same underlying value, different types; only the string forms compare.
	assert.Equal(t, userID.String(), projectID.String())
	assert.NotEqual(t, any(userID), any(projectID))
}

func TestProjectHasMember(t *testing.T) {
	p := Project{Members: []UserRef{RefID("u1"), RefTo(User{ID: "u2", Name: "Bob"})}}
	assert.True(t, p.HasMember("u1"))
	assert.True(t, p.HasMember("u2"))
	assert.False(t, p.HasMember("u3"))
	assert.False(t, p.HasMember(""))
}
