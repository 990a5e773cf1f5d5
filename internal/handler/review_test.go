package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/conference-management/internal/model"
	"github.com/iliyamo/conference-management/internal/repository"
)

func newReviewHandler(t *testing.T) (*ReviewHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	papers := repository.NewPaperRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	users := repository.NewUserRepo(db)
	return NewReviewHandler(papers, assignments, users), mock
}

func reviewCtx(t *testing.T, method, target, body string, uid uint64, role string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uid)
	c.Set("role", role)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	return c, rec
}

func reviewerRows(id uint64, role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "fullname", "role", "password_hash", "created_at", "updated_at"}).
		AddRow(id, "rev@example.com", "Rev", role, "x", now, now)
}

func TestAssignDuplicateReviewer(t *testing.T) {
	h, mock := newReviewHandler(t)

	p := model.Paper{ID: 1, OwnerUserID: 9, Title: "T", Status: model.PaperPending}
	mock.ExpectQuery("SELECT id, owner_user_id, title").
		WithArgs(uint64(1)).
		WillReturnRows(paperRows(p))
	mock.ExpectQuery("SELECT id,email,fullname,role,password_hash").
		WithArgs(uint64(2)).
		WillReturnRows(reviewerRows(2, model.RoleReviewer))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM assignments").
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(44))
	mock.ExpectRollback()

	c, rec := reviewCtx(t, http.MethodPost, "/v1/assignments",
		`{"paper_id":1,"reviewer_user_id":2}`, 3, model.RoleChair)
	require.NoError(t, h.Assign(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DuplicateAssignment", errCode(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRejectsNonPendingPaper(t *testing.T) {
	h, mock := newReviewHandler(t)

	p := model.Paper{ID: 1, OwnerUserID: 9, Title: "T", Status: model.PaperWithdrawn}
	mock.ExpectQuery("SELECT id, owner_user_id, title").
		WithArgs(uint64(1)).
		WillReturnRows(paperRows(p))

	c, rec := reviewCtx(t, http.MethodPost, "/v1/assignments",
		`{"paper_id":1,"reviewer_user_id":2}`, 3, model.RoleChair)
	require.NoError(t, h.Assign(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "InvalidTransition", errCode(t, rec))
}

func TestAssignRejectsOwnPaper(t *testing.T) {
	h, mock := newReviewHandler(t)

	p := model.Paper{ID: 1, OwnerUserID: 2, Title: "T", Status: model.PaperPending}
	mock.ExpectQuery("SELECT id, owner_user_id, title").
		WithArgs(uint64(1)).
		WillReturnRows(paperRows(p))
	mock.ExpectQuery("SELECT id,email,fullname,role,password_hash").
		WithArgs(uint64(2)).
		WillReturnRows(reviewerRows(2, model.RoleReviewer))

	c, rec := reviewCtx(t, http.MethodPost, "/v1/assignments",
		`{"paper_id":1,"reviewer_user_id":2}`, 3, model.RoleChair)
	require.NoError(t, h.Assign(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignRejectsAuthorAsReviewer(t *testing.T) {
	h, mock := newReviewHandler(t)

	p := model.Paper{ID: 1, OwnerUserID: 9, Title: "T", Status: model.PaperPending}
	mock.ExpectQuery("SELECT id, owner_user_id, title").
		WithArgs(uint64(1)).
		WillReturnRows(paperRows(p))
	mock.ExpectQuery("SELECT id,email,fullname,role,password_hash").
		WithArgs(uint64(2)).
		WillReturnRows(reviewerRows(2, model.RoleAuthor))

	c, rec := reviewCtx(t, http.MethodPost, "/v1/assignments",
		`{"paper_id":1,"reviewer_user_id":2}`, 3, model.RoleChair)
	require.NoError(t, h.Assign(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignParsesDeadline(t *testing.T) {
	h, _ := newReviewHandler(t)

	c, rec := reviewCtx(t, http.MethodPost, "/v1/assignments",
		`{"paper_id":1,"reviewer_user_id":2,"deadline_date":"31-12-2026"}`, 3, model.RoleChair)
	require.NoError(t, h.Assign(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReviewScoreBounds(t *testing.T) {
	h, _ := newReviewHandler(t)

	for _, body := range []string{
		`{"assignment_id":5,"score":-1,"comment":"x"}`,
		`{"assignment_id":5,"score":11,"comment":"x"}`,
	} {
		c, rec := reviewCtx(t, http.MethodPost, "/v1/reviews/submit", body, 2, model.RoleReviewer)
		require.NoError(t, h.Submit(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "InvalidScore", errCode(t, rec))
	}
}

func TestSubmitReviewAcceptsBoundaryScores(t *testing.T) {
	for _, score := range []int{0, 10} {
		h, mock := newReviewHandler(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
			WithArgs(uint64(5), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO reviews").
			WithArgs(uint64(5), score, "boundary", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(80, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT id, paper_id, reviewer_user_id, status").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "paper_id", "reviewer_user_id", "status", "deadline_date", "created_at", "updated_at"}).
				AddRow(5, 1, 2, "SUBMITTED", nil, now, now))

		c, rec := reviewCtx(t, http.MethodPost, "/v1/reviews/submit",
			fmt.Sprintf(`{"assignment_id":5,"score":%d,"comment":"boundary"}`, score), 2, model.RoleReviewer)
		require.NoError(t, h.Submit(c))
		assert.Equal(t, http.StatusCreated, rec.Code, "score %d", score)
		assert.NoError(t, mock.ExpectationsWereMet(), "score %d", score)
	}
}

func TestSubmitReviewRequiresScore(t *testing.T) {
	h, _ := newReviewHandler(t)

	c, rec := reviewCtx(t, http.MethodPost, "/v1/reviews/submit",
		`{"assignment_id":5,"comment":"no score"}`, 2, model.RoleReviewer)
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", errCode(t, rec))
}

func TestSubmitReviewSecondSubmission(t *testing.T) {
	h, mock := newReviewHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(5), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT reviewer_user_id, status FROM assignments").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_user_id", "status"}).AddRow(2, "SUBMITTED"))
	mock.ExpectRollback()

	c, rec := reviewCtx(t, http.MethodPost, "/v1/reviews/submit",
		`{"assignment_id":5,"score":8,"comment":"again"}`, 2, model.RoleReviewer)
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "AlreadySubmitted", errCode(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReviewNotYourAssignment(t *testing.T) {
	h, mock := newReviewHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status='SUBMITTED'").
		WithArgs(uint64(5), uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT reviewer_user_id, status FROM assignments").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"reviewer_user_id", "status"}).AddRow(2, "ASSIGNED"))
	mock.ExpectRollback()

	c, rec := reviewCtx(t, http.MethodPost, "/v1/reviews/submit",
		`{"assignment_id":5,"score":8,"comment":""}`, 99, model.RoleReviewer)
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", errCode(t, rec))
}

func TestStartNotInAssignedState(t *testing.T) {
	h, mock := newReviewHandler(t)

	now := time.Now()
	mock.ExpectExec("UPDATE assignments SET status=?").
		WithArgs("IN_PROGRESS", uint64(5), uint64(2), "ASSIGNED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, paper_id, reviewer_user_id, status").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paper_id", "reviewer_user_id", "status", "deadline_date", "created_at", "updated_at"}).
			AddRow(5, 1, 2, "SUBMITTED", nil, now, now))

	c, rec := reviewCtx(t, http.MethodPatch, "/v1/assignments/5/start", "", 2, model.RoleReviewer, "id", "5")
	require.NoError(t, h.Start(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "InvalidTransition", errCode(t, rec))
}
