package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAndVerify(t *testing.T) {
	h := HashPassword("hunter2")
	assert.True(t, strings.HasPrefix(h, "argon2id:"))
	assert.True(t, VerifyPassword(h, "hunter2"))
	assert.False(t, VerifyPassword(h, "hunter3"))
}

func TestHashIsSalted(t *testing.T) {
	assert.NotEqual(t, HashPassword("hunter2"), HashPassword("hunter2"))
}

func TestVerifyPlaintextFallback(t *testing.T) {
	assert.True(t, VerifyPassword("hunter2", "hunter2"))
	assert.False(t, VerifyPassword("hunter2", "nope"))
}

func TestVerifyRejectsEmptyAndMalformed(t *testing.T) {
	assert.False(t, VerifyPassword("", "anything"))
	assert.False(t, VerifyPassword("argon2id:bogus", "anything"))
	assert.False(t, VerifyPassword("argon2id:zz:zz", "anything"))
}
