package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	h, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "s3cret-pass"))
	assert.False(t, VerifyPassword(h, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret-pass"))
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "hanoi", NormalizeAnswer("  Hanoi "))
	assert.Equal(t, "rex", NormalizeAnswer("REX"))
	assert.Equal(t, "", NormalizeAnswer("   "))
}

func TestVerifyAnswerNormalizes(t *testing.T) {
	h, err := HashAnswer("  GreenDale High ", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyAnswer(h, "greendale high"))
	assert.True(t, VerifyAnswer(h, " GREENDALE HIGH  "))
	assert.False(t, VerifyAnswer(h, "riverside high"))
}

func TestDummyCompareAlwaysFalse(t *testing.T) {
	assert.False(t, DummyCompare("anything"))
	assert.False(t, DummyCompare("conference-management-dummy"))
}

func TestStrongEnough(t *testing.T) {
	assert.False(t, StrongEnough("short"))
	assert.False(t, StrongEnough("1234567"))
	assert.True(t, StrongEnough("12345678"))
}
