package model

import "time"

// Role names as stored in the users.role column.  A user holds exactly
// one role, assigned at registration.
const (
	RoleAuthor   = "AUTHOR"
	RoleReviewer = "REVIEWER"
	RoleChair    = "CHAIR"
	RoleAdmin    = "ADMIN"
)

// ValidRole reports whether the given string is a known role name.
func ValidRole(r string) bool {
	switch r {
	case RoleAuthor, RoleReviewer, RoleChair, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the `users` table.  Emails are stored lower-case so the
// unique index enforces case-insensitive uniqueness.  The password is
// kept only as a bcrypt hash.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (normalized to lower-case).
//  FullName     – display name.
//  Role         – role name (AUTHOR, REVIEWER, CHAIR, ADMIN).
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	FullName     string    // users.fullname
	Role         string    // users.role
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// SecurityQuestionCount is the number of question/answer pairs every
// account registers.  The set is immutable after registration.  Answers
// live in the `security_questions` table as bcrypt hashes of the
// normalized (trimmed, lower-cased) answer text; the plaintext is never
// retained.
const SecurityQuestionCount = 3
