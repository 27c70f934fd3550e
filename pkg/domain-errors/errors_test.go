package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "project not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("fetch projects: %w", New(CodeUnauthorized, "jwt expired"))
		assert.True(t, HasCode(err, CodeUnauthorized))
		assert.True(t, IsAuth(err))
	})

	t.Run("matches inner domain error", func(t *testing.T) {
		inner := New(CodeUnavailable, "dial tcp: refused")
		outer := Wrap(inner, CodeUnauthorized, "login failed")
		assert.True(t, HasCode(outer, CodeUnavailable))
		assert.True(t, HasCode(outer, CodeUnauthorized))
	})

	t.Run("foreign errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestFieldsAreCopied(t *testing.T) {
	src := map[string]string{"name": "Project name is required"}
	err := Validation("invalid project", src)
	src["name"] = "mutated"

	fields := Fields(err)
	require.NotNil(t, fields)
	assert.Equal(t, "Project name is required", fields["name"])

	fields["name"] = "mutated again"
	assert.Equal(t, "Project name is required", Fields(err)["name"])
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Invalid credentials", Message(Wrap(errors.New("401"), CodeUnauthorized, "Invalid credentials")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
