package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/conference-management/internal/model"
)

// PaperRepo provides persistence for papers and their co-author lists.
// Status transitions are guarded with compare-and-set updates so two
// concurrent requests can never both apply the same transition.
type PaperRepo struct{ db *sql.DB }

func NewPaperRepo(db *sql.DB) *PaperRepo { return &PaperRepo{db: db} }

// Create inserts a paper and its ordered co-author list in one
// transaction.  The caller sets Status (DRAFT or PENDING) and
// SubmittedAt beforehand.  The generated ID is written back to p.
func (r *PaperRepo) Create(ctx context.Context, p *model.Paper, authors []model.PaperAuthor) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO papers (owner_user_id, title, abstract, keywords, conference_id, track_id, pdf_blob_ref, status, submitted_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.OwnerUserID, p.Title, p.Abstract, p.Keywords, p.ConferenceID, p.TrackID, p.PDFBlobRef, string(p.Status), p.SubmittedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	for i, a := range authors {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO paper_authors (paper_id, position, name, email) VALUES (?,?,?,?)",
			p.ID, i, a.Name, a.Email); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches a single paper.  ErrNotFound when no row exists.
func (r *PaperRepo) GetByID(ctx context.Context, id uint64) (model.Paper, error) {
	var p model.Paper
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_user_id, title, abstract, keywords, conference_id, track_id, pdf_blob_ref, status, submitted_at, created_at, updated_at
		 FROM papers WHERE id=? LIMIT 1`,
		id).Scan(&p.ID, &p.OwnerUserID, &p.Title, &p.Abstract, &p.Keywords, &p.ConferenceID, &p.TrackID,
		&p.PDFBlobRef, &status, &p.SubmittedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Paper{}, ErrNotFound
	}
	if err != nil {
		return model.Paper{}, err
	}
	p.Status = model.PaperStatus(status)
	return p, nil
}

// ListByOwner returns the owner's papers ordered by submission date
// descending; drafts without a submission date sort last by creation.
func (r *PaperRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Paper, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_user_id, title, abstract, keywords, conference_id, track_id, pdf_blob_ref, status, submitted_at, created_at, updated_at
		 FROM papers WHERE owner_user_id=?
		 ORDER BY submitted_at IS NULL, submitted_at DESC, id DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Paper
	for rows.Next() {
		var p model.Paper
		var status string
		if err := rows.Scan(&p.ID, &p.OwnerUserID, &p.Title, &p.Abstract, &p.Keywords, &p.ConferenceID, &p.TrackID,
			&p.PDFBlobRef, &status, &p.SubmittedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Status = model.PaperStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Authors returns the ordered co-author list of a paper.
func (r *PaperRepo) Authors(ctx context.Context, paperID uint64) ([]model.PaperAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT paper_id, position, name, email FROM paper_authors WHERE paper_id=? ORDER BY position",
		paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PaperAuthor
	for rows.Next() {
		var a model.PaperAuthor
		if err := rows.Scan(&a.PaperID, &a.Position, &a.Name, &a.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ContentUpdate carries the editable fields of a paper.  Nil pointers
// leave the column unchanged.
type ContentUpdate struct {
	Title      *string
	Abstract   *string
	Keywords   *string
	PDFBlobRef *string
}

// UpdateContent applies an edit while the paper is still DRAFT or
// PENDING.  The status guard is part of the UPDATE so a concurrent
// decision cannot race the edit; zero affected rows with a live paper
// means the window has closed and ErrConflict is returned.
func (r *PaperRepo) UpdateContent(ctx context.Context, paperID uint64, upd ContentUpdate) error {
	set := ""
	args := []interface{}{}
	appendSet := func(col string, v *string) {
		if v == nil {
			return
		}
		if set != "" {
			set += ", "
		}
		set += col + "=?"
		args = append(args, *v)
	}
	appendSet("title", upd.Title)
	appendSet("abstract", upd.Abstract)
	appendSet("keywords", upd.Keywords)
	appendSet("pdf_blob_ref", upd.PDFBlobRef)
	if set == "" {
		return nil
	}
	args = append(args, paperID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE papers SET "+set+" WHERE id=? AND status IN ('DRAFT','PENDING')", args...)
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

// SubmitDraft promotes a DRAFT to PENDING and stamps the submission
// time.  ErrConflict when the paper is not a draft anymore.
func (r *PaperRepo) SubmitDraft(ctx context.Context, paperID uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE papers SET status='PENDING', submitted_at=? WHERE id=? AND status='DRAFT'",
		at, paperID)
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

// Withdraw moves a DRAFT or PENDING paper to WITHDRAWN.  The owner check
// happens in the handler; the status guard happens here so repeated or
// racing withdrawals surface as ErrConflict.
func (r *PaperRepo) Withdraw(ctx context.Context, paperID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE papers SET status='WITHDRAWN' WHERE id=? AND status IN ('DRAFT','PENDING')",
		paperID)
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

// Decide records an accept/reject decision.  The paper flips from
// PENDING to the target status and a decisions row is written in the
// same transaction; exactly one of two concurrent decisions can win.
func (r *PaperRepo) Decide(ctx context.Context, paperID, chairID uint64, to model.PaperStatus, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE papers SET status=? WHERE id=? AND status='PENDING'",
		string(to), paperID)
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

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO decisions (paper_id, chair_user_id, status, decided_at) VALUES (?,?,?,?)",
		paperID, chairID, string(to), at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
