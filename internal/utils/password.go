package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the minimum accepted password length, applied at
// registration, password change and recovery reset.
const MinPasswordLen = 8

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NormalizeAnswer canonicalizes a security answer before hashing or
// comparison: surrounding whitespace is stripped and the text is
// lower-cased, so "  Hanoi " and "hanoi" match.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer hashes a normalized security answer with bcrypt.
func HashAnswer(answer string, cost int) (string, error) {
	return HashPassword(NormalizeAnswer(answer), cost)
}

// VerifyAnswer compares a stored answer hash with a candidate answer
// after normalization.
func VerifyAnswer(hash, answer string) bool {
	return VerifyPassword(hash, NormalizeAnswer(answer))
}

// dummyHash is compared against when an email lookup misses, so that a
// login or recovery probe costs the same bcrypt work whether or not the
// account exists.
var dummyHash, _ = HashPassword("conference-management-dummy", bcrypt.MinCost)

// DummyCompare burns one bcrypt comparison.  The result is always false.
func DummyCompare(plain string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
	return false
}

// StrongEnough reports whether the password satisfies the minimum
// length policy.
func StrongEnough(plain string) bool {
	return len(plain) >= MinPasswordLen
}
