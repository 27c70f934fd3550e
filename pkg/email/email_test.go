package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ada@example.com", true},
		{"  ada@example.com ", true},
		{"ada", false},
		{"@example.com", false},
		{"ada@example", false},
		{"ada@example.", false},
		{"ada@@example.com", false},
		{"a da@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", DeriveName("ada.lovelace@example.com"))
	assert.Equal(t, "Root", DeriveName("root@example.com"))
	assert.Equal(t, "User", DeriveName("@example.com"))
	assert.Equal(t, "root", LocalPart("root@example.com"))
	assert.Equal(t, "root", LocalPart("root"))
	assert.Equal(t, "", LocalPart("@example.com"))
}
