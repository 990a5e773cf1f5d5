package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-management/internal/apperr"
	"github.com/iliyamo/conference-management/internal/model"
	"github.com/iliyamo/conference-management/internal/queue"
	"github.com/iliyamo/conference-management/internal/repository"
	queue_publisher "github.com/iliyamo/conference-management/internal/service"
)

// ReviewHandler owns reviewer assignment and review submission.
type ReviewHandler struct {
	Papers      *repository.PaperRepo
	Assignments *repository.AssignmentRepo
	Users       *repository.UserRepo
}

func NewReviewHandler(papers *repository.PaperRepo, assignments *repository.AssignmentRepo, users *repository.UserRepo) *ReviewHandler {
	if papers == nil || assignments == nil || users == nil {
		panic("nil repository passed to NewReviewHandler")
	}
	return &ReviewHandler{Papers: papers, Assignments: assignments, Users: users}
}

// ----- DTOs -----

type assignReq struct {
	PaperID        uint64 `json:"paper_id"`
	ReviewerUserID uint64 `json:"reviewer_user_id"`
	DeadlineDate   string `json:"deadline_date"` // YYYY-MM-DD, optional
}

type submitReviewReq struct {
	AssignmentID uint64 `json:"assignment_id"`
	Score        *int   `json:"score"`
	Comment      string `json:"comment"`
}

// Assign handles POST /v1/assignments.  Chair only; one live assignment
// per (paper, reviewer) pair.
func (h *ReviewHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	if req.PaperID == 0 || req.ReviewerUserID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "paper_id and reviewer_user_id are required"))
	}
	var deadline *time.Time
	if s := strings.TrimSpace(req.DeadlineDate); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return writeErr(c, apperr.New(apperr.CodeValidation, "deadline_date: expected YYYY-MM-DD"))
		}
		deadline = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	p, err := h.Papers.GetByID(ctx, req.PaperID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "paper not found"))
		}
		return internalErr(c)
	}
	if p.Status != model.PaperPending {
		return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "only pending papers can be assigned"))
	}

	reviewer, err := h.Users.GetByID(ctx, req.ReviewerUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "reviewer not found"))
		}
		return internalErr(c)
	}
	if reviewer.Role != model.RoleReviewer && reviewer.Role != model.RoleChair {
		return writeErr(c, apperr.New(apperr.CodeValidation, "user cannot act as a reviewer"))
	}
	if p.OwnerUserID == reviewer.ID {
		return writeErr(c, apperr.New(apperr.CodeValidation, "authors cannot review their own paper"))
	}

	id, err := h.Assignments.Create(ctx, req.PaperID, req.ReviewerUserID, deadline)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateAssignment) {
			return writeErr(c, apperr.New(apperr.CodeDuplicateAssignment, "reviewer already assigned to this paper"))
		}
		return internalErr(c)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "status": string(model.AssignmentAssigned)})
}

// ListMine handles GET /v1/reviews/my: every assignment of the calling
// reviewer with the joined paper summary.
func (h *ReviewHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	items, err := h.Assignments.ListByReviewer(ctx, uid)
	if err != nil {
		return internalErr(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": items, "total": len(items)})
}

// Start handles PATCH /v1/assignments/:id/start, moving ASSIGNED to
// IN_PROGRESS for the calling reviewer.
func (h *ReviewHandler) Start(c echo.Context) error {
	return h.flip(c, []model.AssignmentStatus{model.AssignmentAssigned}, model.AssignmentInProgress)
}

// Decline handles PATCH /v1/assignments/:id/decline.  A declined
// assignment frees the slot for a fresh one.
func (h *ReviewHandler) Decline(c echo.Context) error {
	return h.flip(c, []model.AssignmentStatus{model.AssignmentAssigned, model.AssignmentInProgress}, model.AssignmentDeclined)
}

func (h *ReviewHandler) flip(c echo.Context, from []model.AssignmentStatus, to model.AssignmentStatus) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid assignment id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Assignments.UpdateStatusForReviewer(ctx, id, uid, from, to); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return internalErr(c)
		}
		// the CAS failed: distinguish missing, foreign and wrong-state
		a, gerr := h.Assignments.GetByID(ctx, id)
		switch {
		case errors.Is(gerr, repository.ErrNotFound):
			return writeErr(c, apperr.New(apperr.CodeNotFound, "assignment not found"))
		case gerr != nil:
			return internalErr(c)
		case a.ReviewerUserID != uid:
			return writeErr(c, apperr.New(apperr.CodeForbidden, "not your assignment"))
		default:
			return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "assignment is not in a state that allows this"))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}

// Submit handles POST /v1/reviews/submit.  Stores the review and flips
// the assignment to SUBMITTED in one transaction; an assignment accepts
// exactly one review.
func (h *ReviewHandler) Submit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	var req submitReviewReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	if req.AssignmentID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "assignment_id is required"))
	}
	if req.Score == nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "score is required"))
	}
	if *req.Score < model.MinScore || *req.Score > model.MaxScore {
		return writeErr(c, apperr.New(apperr.CodeInvalidScore, "score must be between 0 and 10"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	now := time.Now().UTC()
	reviewID, err := h.Assignments.SubmitReview(ctx, req.AssignmentID, uid, *req.Score, strings.TrimSpace(req.Comment), now)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return writeErr(c, apperr.New(apperr.CodeNotFound, "assignment not found"))
		case errors.Is(err, repository.ErrForbidden):
			return writeErr(c, apperr.New(apperr.CodeForbidden, "not your assignment"))
		case errors.Is(err, repository.ErrAlreadySubmitted):
			return writeErr(c, apperr.New(apperr.CodeAlreadySubmitted, "review already submitted for this assignment"))
		case errors.Is(err, repository.ErrConflict):
			return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "assignment does not accept a review in its current state"))
		default:
			return internalErr(c)
		}
	}

	if a, err := h.Assignments.GetByID(ctx, req.AssignmentID); err == nil {
		_ = queue_publisher.Publish(c.Request().Context(), queue.TypeReviewSubmitted, queue.ReviewSubmittedEvent{
			ReviewID:       reviewID,
			AssignmentID:   req.AssignmentID,
			PaperID:        a.PaperID,
			ReviewerUserID: uid,
			Score:          *req.Score,
			SubmittedAt:    now.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": reviewID, "status": string(model.AssignmentSubmitted)})
}
