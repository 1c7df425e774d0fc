package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "alice_42", false},
		{"valid starts with digit", "1alice", false},
		{"too short", "ab", true},
		{"too long", "abcdefghijklmnopqrstu", true},
		{"illegal characters", "alice!", true},
		{"starts with underscore", "_alice", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@example.com"))
	assert.NoError(t, ValidateEmail("  alice@example.com  "))
	assert.Error(t, ValidateEmail("alice"))
	assert.Error(t, ValidateEmail("alice@example"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough1"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("123456789"), "entirely numeric passwords are rejected")
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.NoError(t, ValidatePhoneNumber(""), "phone number is optional")
	assert.NoError(t, ValidatePhoneNumber("+4915112345678"))
	assert.NoError(t, ValidatePhoneNumber("123456789"))
	assert.Error(t, ValidatePhoneNumber("12345"))
	assert.Error(t, ValidatePhoneNumber("not-a-number"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "alice@example.com", NormalizeEmail(" Alice@Example.COM "))
}
