package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   \t"))
	assert.False(t, IsEmpty("x"))
}

func TestIsValidUUID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid v4", "6ba7b810-9dad-41d1-80b4-00c04fd430c8", true},
		{"uppercase accepted", "6BA7B810-9DAD-41D1-80B4-00C04FD430C8", true},
		{"missing segment", "6ba7b810-9dad-41d1-80b4", false},
		{"not a uuid", "technician-1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidUUID(tt.input))
		})
	}
}

func TestIsValidDate(t *testing.T) {
	d, ok := IsValidDate("2024-01-15")
	assert.True(t, ok)
	assert.Equal(t, 2024, d.Year())

	_, ok = IsValidDate("15-01-2024")
	assert.False(t, ok)

	_, ok = IsValidDate("2024-01-15T10:30:00Z")
	assert.False(t, ok)
}

func TestIsValidDateTime(t *testing.T) {
	_, ok := IsValidDateTime("2024-01-15T10:30:00Z")
	assert.True(t, ok)

	_, ok = IsValidDateTime("2024-01-15T10:30:00+07:00")
	assert.True(t, ok)

	_, ok = IsValidDateTime("2024-01-15T10:30:00.123456789Z")
	assert.True(t, ok)

	_, ok = IsValidDateTime("2024-01-15 10:30:00")
	assert.False(t, ok)
}

func TestIsInSlice(t *testing.T) {
	roles := []string{"technician", "supervisor", "admin"}
	assert.True(t, IsInSlice("supervisor", roles))
	assert.False(t, IsInSlice("manager", roles))
	assert.False(t, IsInSlice("admin", nil))
}
