// Package queue defines message payloads exchanged over the message broker.
package queue

import "encoding/json"

// Event type names carried in the envelope.
const (
	TypePaperSubmitted   = "paper.submitted"
	TypeReviewSubmitted  = "review.submitted"
	TypeDecisionRecorded = "decision.recorded"
)

// Envelope wraps every domain event published to the audit queue so a
// single consumer can handle all of them.
type Envelope struct {
	Type string          `json:"type"`
	At   string          `json:"at"` // RFC3339 UTC
	Data json.RawMessage `json:"data"`
}

// PaperSubmittedEvent is published when a paper enters PENDING.
type PaperSubmittedEvent struct {
	PaperID      uint64 `json:"paper_id"`
	OwnerUserID  uint64 `json:"owner_user_id"`
	Title        string `json:"title"`
	ConferenceID uint64 `json:"conference_id"`
	TrackID      uint64 `json:"track_id"`
	SubmittedAt  string `json:"submitted_at"`
}

// ReviewSubmittedEvent is published when a review is stored and its
// assignment flips to SUBMITTED.
type ReviewSubmittedEvent struct {
	ReviewID       uint64 `json:"review_id"`
	AssignmentID   uint64 `json:"assignment_id"`
	PaperID        uint64 `json:"paper_id"`
	ReviewerUserID uint64 `json:"reviewer_user_id"`
	Score          int    `json:"score"`
	SubmittedAt    string `json:"submitted_at"`
}

// DecisionRecordedEvent is published when a chair accepts or rejects a
// paper.
type DecisionRecordedEvent struct {
	PaperID     uint64 `json:"paper_id"`
	ChairUserID uint64 `json:"chair_user_id"`
	Status      string `json:"status"`
	DecidedAt   string `json:"decided_at"`
}
