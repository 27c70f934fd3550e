package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "taskportal/pkg/domain-errors"
)

func TestReformatInputDate(t *testing.T) {
	t.Run("reorders year-month-day to day-month-year", func(t *testing.T) {
		got, err := ReformatInputDate("2025-10-30")
		require.NoError(t, err)
		assert.Equal(t, "30-10-2025", got)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		got, err := ReformatInputDate("  ")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ReformatInputDate("30/10/2025")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestDateUnmarshal(t *testing.T) {
	cases := map[string]string{
		"wire form":     `"30-10-2025"`,
		"input form":    `"2025-10-30"`,
		"iso timestamp": `"2025-10-30T00:00:00.000Z"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(raw), &d))
			assert.Equal(t, NewDate(2025, time.October, 30), d)
		})
	}

	t.Run("null and empty are unset", func(t *testing.T) {
		for _, raw := range []string{`null`, `""`} {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(raw), &d))
			assert.True(t, d.IsZero())
		}
	})

	t.Run("marshals as input form", func(t *testing.T) {
		b, err := json.Marshal(NewDate(2025, time.October, 30))
		require.NoError(t, err)
		assert.JSONEq(t, `"2025-10-30"`, string(b))
	})
}
