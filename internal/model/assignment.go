package model

import "time"

// AssignmentStatus enumerates the states of a review assignment.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentSubmitted  AssignmentStatus = "SUBMITTED"
	AssignmentDeclined   AssignmentStatus = "DECLINED"
)

// Open reports whether the assignment still accepts a review.  A
// Submitted assignment is immutable; a Declined one frees the
// (paper, reviewer) slot for reassignment.
func (s AssignmentStatus) Open() bool {
	return s == AssignmentAssigned || s == AssignmentInProgress
}

// Assignment mirrors the `assignments` table binding one paper to one
// reviewer.  The deadline is advisory data, never enforced by timers.
type Assignment struct {
	ID             uint64           // assignments.id
	PaperID        uint64           // assignments.paper_id
	ReviewerUserID uint64           // assignments.reviewer_user_id
	Status         AssignmentStatus // assignments.status
	DeadlineDate   *time.Time       // assignments.deadline_date (nullable)
	CreatedAt      time.Time        // assignments.created_at
	UpdatedAt      time.Time        // assignments.updated_at
}
