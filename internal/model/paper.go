package model

import "time"

// PaperStatus enumerates the lifecycle states of a submission.
type PaperStatus string

const (
	PaperDraft     PaperStatus = "DRAFT"
	PaperPending   PaperStatus = "PENDING"
	PaperAccepted  PaperStatus = "ACCEPTED"
	PaperRejected  PaperStatus = "REJECTED"
	PaperWithdrawn PaperStatus = "WITHDRAWN"
)

// Terminal reports whether the status admits no further transitions.
// Withdrawn is a terminal status, not a deletion.
func (s PaperStatus) Terminal() bool {
	switch s {
	case PaperAccepted, PaperRejected, PaperWithdrawn:
		return true
	}
	return false
}

// Editable reports whether the owner may still change title, abstract or
// the uploaded file.  Editing stops once a decision has been recorded.
func (s PaperStatus) Editable() bool {
	return s == PaperDraft || s == PaperPending
}

// CanTransition encodes the lifecycle table:
// DRAFT -> PENDING -> {ACCEPTED, REJECTED}, WITHDRAWN reachable from
// DRAFT or PENDING.
func (s PaperStatus) CanTransition(to PaperStatus) bool {
	switch s {
	case PaperDraft:
		return to == PaperPending || to == PaperWithdrawn
	case PaperPending:
		return to == PaperAccepted || to == PaperRejected || to == PaperWithdrawn
	}
	return false
}

// Paper mirrors the `papers` table.  The owner never changes after
// creation; rows are never physically deleted once Pending or later.
//
// Fields:
//  ID           – primary key identifier.
//  OwnerUserID  – submitting author (immutable).
//  Title        – paper title.
//  Abstract     – paper abstract.
//  Keywords     – comma-separated keyword list (at least one).
//  ConferenceID – conference the paper targets.
//  TrackID      – track within the conference.
//  PDFBlobRef   – opaque reference into the blob store.
//  Status       – lifecycle state.
//  SubmittedAt  – when the paper entered PENDING (null while DRAFT).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Paper struct {
	ID           uint64      // papers.id
	OwnerUserID  uint64      // papers.owner_user_id
	Title        string      // papers.title
	Abstract     string      // papers.abstract
	Keywords     string      // papers.keywords
	ConferenceID uint64      // papers.conference_id
	TrackID      uint64      // papers.track_id
	PDFBlobRef   string      // papers.pdf_blob_ref
	Status       PaperStatus // papers.status
	SubmittedAt  *time.Time  // papers.submitted_at (nullable)
	CreatedAt    time.Time   // papers.created_at
	UpdatedAt    time.Time   // papers.updated_at
}

// PaperAuthor mirrors the `paper_authors` table holding the ordered
// co-author list of a paper.
type PaperAuthor struct {
	PaperID  uint64 // paper_authors.paper_id
	Position int    // paper_authors.position (0-based order)
	Name     string // paper_authors.name
	Email    string // paper_authors.email
}
