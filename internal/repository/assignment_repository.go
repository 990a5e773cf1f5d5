package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/conference-management/internal/model"
)

// AssignmentRepo provides persistence for review assignments and the
// reviews submitted against them.  Review creation and the assignment
// flip to SUBMITTED run inside one transaction so no state ever exists
// where a review is stored but its assignment is still open.
type AssignmentRepo struct{ db *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

// Create assigns a reviewer to a paper.  A reviewer may hold at most one
// non-declined assignment per paper; the duplicate check and the insert
// share a transaction with a locking read so concurrent assigns cannot
// both pass the check.
func (r *AssignmentRepo) Create(ctx context.Context, paperID, reviewerID uint64, deadline *time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existing uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM assignments
		 WHERE paper_id=? AND reviewer_user_id=? AND status <> 'DECLINED'
		 LIMIT 1 FOR UPDATE`,
		paperID, reviewerID).Scan(&existing)
	if err == nil {
		return 0, ErrDuplicateAssignment
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO assignments (paper_id, reviewer_user_id, status, deadline_date) VALUES (?,?,'ASSIGNED',?)",
		paperID, reviewerID, deadline)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// GetByID fetches a single assignment.
func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (model.Assignment, error) {
	var a model.Assignment
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, paper_id, reviewer_user_id, status, deadline_date, created_at, updated_at
		 FROM assignments WHERE id=? LIMIT 1`,
		id).Scan(&a.ID, &a.PaperID, &a.ReviewerUserID, &status, &a.DeadlineDate, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Assignment{}, ErrNotFound
	}
	if err != nil {
		return model.Assignment{}, err
	}
	a.Status = model.AssignmentStatus(status)
	return a, nil
}

// AssignmentDetail pairs an assignment with a summary of its paper for
// the reviewer's work list.
type AssignmentDetail struct {
	ID           uint64     `json:"assignment_id"`
	Status       string     `json:"status"`
	DeadlineDate *time.Time `json:"deadline_date,omitempty"`
	PaperID      uint64     `json:"paper_id"`
	PaperTitle   string     `json:"paper_title"`
	PaperStatus  string     `json:"paper_status"`
	Abstract     string     `json:"abstract"`
	Keywords     string     `json:"keywords"`
	PDFBlobRef   string     `json:"pdf_blob_ref"`
}

// ListByReviewer returns the reviewer's assignments joined with paper
// summaries, newest first.
func (r *AssignmentRepo) ListByReviewer(ctx context.Context, reviewerID uint64) ([]AssignmentDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.status, a.deadline_date, p.id, p.title, p.status, p.abstract, p.keywords, p.pdf_blob_ref
		 FROM assignments a
		 JOIN papers p ON p.id = a.paper_id
		 WHERE a.reviewer_user_id=?
		 ORDER BY a.id DESC`,
		reviewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssignmentDetail
	for rows.Next() {
		var d AssignmentDetail
		if err := rows.Scan(&d.ID, &d.Status, &d.DeadlineDate, &d.PaperID, &d.PaperTitle, &d.PaperStatus,
			&d.Abstract, &d.Keywords, &d.PDFBlobRef); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateStatusForReviewer applies a reviewer-initiated transition
// (start, decline) with both the ownership and the source-status guard
// in the UPDATE itself.  When no row changes, the caller resolves the
// exact failure via GetByID.
func (r *AssignmentRepo) UpdateStatusForReviewer(ctx context.Context, id, reviewerID uint64, from []model.AssignmentStatus, to model.AssignmentStatus) error {
	placeholders := make([]string, len(from))
	args := []interface{}{string(to), id, reviewerID}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE assignments SET status=? WHERE id=? AND reviewer_user_id=? AND status IN ("+strings.Join(placeholders, ",")+")",
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SubmitReview stores the review and flips the assignment to SUBMITTED
// atomically.  Concurrent submissions on the same assignment serialize
// on the status CAS: exactly one wins, the loser gets
// ErrAlreadySubmitted (or ErrConflict for a declined assignment).
func (r *AssignmentRepo) SubmitReview(ctx context.Context, assignmentID, reviewerID uint64, score int, comment string, at time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE assignments SET status='SUBMITTED'
		 WHERE id=? AND reviewer_user_id=? AND status IN ('ASSIGNED','IN_PROGRESS')`,
		assignmentID, reviewerID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// CAS failed: classify why before reporting.
		var owner uint64
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT reviewer_user_id, status FROM assignments WHERE id=? LIMIT 1",
			assignmentID).Scan(&owner, &status)
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		if owner != reviewerID {
			return 0, ErrForbidden
		}
		if model.AssignmentStatus(status) == model.AssignmentSubmitted {
			return 0, ErrAlreadySubmitted
		}
		return 0, ErrConflict
	}

	ins, err := tx.ExecContext(ctx,
		"INSERT INTO reviews (assignment_id, score, comment, submitted_at) VALUES (?,?,?,?)",
		assignmentID, score, comment, at)
	if err != nil {
		// the unique index on assignment_id is the backstop
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrAlreadySubmitted
		}
		return 0, err
	}
	reviewID, err := ins.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(reviewID), nil
}

// HasAssignmentForPaper reports whether the reviewer holds any
// assignment for the paper.  Used for role-gated paper visibility.
func (r *AssignmentRepo) HasAssignmentForPaper(ctx context.Context, paperID, reviewerID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM assignments WHERE paper_id=? AND reviewer_user_id=? LIMIT 1",
		paperID, reviewerID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
