package model

// Score bounds for a review, inclusive.  Scores live in the `reviews`
// table, which carries a unique index on assignment_id so at most one
// review can ever exist per assignment.
const (
	MinScore = 0
	MaxScore = 10
)
