package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/conference-management/internal/model"
)

func newAssignmentRepo(t *testing.T) (*AssignmentRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAssignmentRepo(db), mock
}

func TestAssignmentCreate(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM assignments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(uint64(1), uint64(2), nil).
		WillReturnResult(sqlmock.NewResult(33, 1))
	mock.ExpectCommit()

	id, err := repo.Create(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentCreateDuplicate(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM assignments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), 1, 2, nil)
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentCreateAfterDecline(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	// a DECLINED row does not count against the duplicate check, so the
	// locking read misses and the insert proceeds
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM assignments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(uint64(1), uint64(2), nil).
		WillReturnResult(sqlmock.NewResult(34, 1))
	mock.ExpectCommit()

	id, err := repo.Create(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(34), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewHappyPath(t *testing.T) {
	repo, mock := newAssignmentRepo(t)
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(5), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(uint64(5), 8, "solid work", at).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	id, err := repo.SubmitReview(context.Background(), 5, 2, 8, "solid work", at)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewAlreadySubmitted(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(5), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT reviewer_user_id, status FROM assignments").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_user_id", "status"}).AddRow(2, "SUBMITTED"))
	mock.ExpectRollback()

	_, err := repo.SubmitReview(context.Background(), 5, 2, 8, "again", time.Now())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewWrongReviewer(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(5), uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT reviewer_user_id, status FROM assignments").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_user_id", "status"}).AddRow(2, "ASSIGNED"))
	mock.ExpectRollback()

	_, err := repo.SubmitReview(context.Background(), 5, 99, 8, "", time.Now())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewMissingAssignment(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(404), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT reviewer_user_id, status FROM assignments").
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_user_id", "status"}))
	mock.ExpectRollback()

	_, err := repo.SubmitReview(context.Background(), 404, 2, 8, "", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewUniqueIndexBackstop(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(5), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '5' for key 'reviews.assignment_id'"))
	mock.ExpectRollback()

	_, err := repo.SubmitReview(context.Background(), 5, 2, 8, "", time.Now())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusForReviewer(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET status=? WHERE id=? AND reviewer_user_id=? AND status IN (?)")).
		WithArgs("IN_PROGRESS", uint64(5), uint64(2), "ASSIGNED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatusForReviewer(context.Background(), 5, 2,
		[]model.AssignmentStatus{model.AssignmentAssigned}, model.AssignmentInProgress)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusForReviewerNoMatch(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET status=?")).
		WithArgs("DECLINED", uint64(5), uint64(2), "ASSIGNED", "IN_PROGRESS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatusForReviewer(context.Background(), 5, 2,
		[]model.AssignmentStatus{model.AssignmentAssigned, model.AssignmentInProgress}, model.AssignmentDeclined)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasAssignmentForPaper(t *testing.T) {
	repo, mock := newAssignmentRepo(t)

	mock.ExpectQuery("SELECT 1 FROM assignments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM assignments").
		WithArgs(uint64(1), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	ok, err := repo.HasAssignmentForPaper(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasAssignmentForPaper(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
