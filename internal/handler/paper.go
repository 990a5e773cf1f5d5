package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
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

// PaperHandler owns the submission lifecycle endpoints.  Role checks
// beyond the route-level middleware (ownership, assigned-reviewer
// visibility) happen here.
type PaperHandler struct {
	Papers      *repository.PaperRepo
	Assignments *repository.AssignmentRepo
}

func NewPaperHandler(papers *repository.PaperRepo, assignments *repository.AssignmentRepo) *PaperHandler {
	if papers == nil || assignments == nil {
		panic("nil repository passed to NewPaperHandler")
	}
	return &PaperHandler{Papers: papers, Assignments: assignments}
}

// ----- DTOs -----

type coAuthorReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type submitPaperReq struct {
	Title        string        `json:"title"`
	Abstract     string        `json:"abstract"`
	Keywords     []string      `json:"keywords"`
	ConferenceID uint64        `json:"conference_id"`
	TrackID      uint64        `json:"track_id"`
	CoAuthors    []coAuthorReq `json:"co_authors"`
	PDFBlobRef   string        `json:"pdf_blob_ref"`
	Draft        bool          `json:"draft"`
}

type editPaperReq struct {
	Title      *string  `json:"title"`
	Abstract   *string  `json:"abstract"`
	Keywords   []string `json:"keywords"`
	PDFBlobRef *string  `json:"pdf_blob_ref"`
}

type decisionReq struct {
	Status string `json:"status"` // ACCEPTED | REJECTED
}

type paperResp struct {
	ID           uint64     `json:"id"`
	Title        string     `json:"title"`
	Abstract     string     `json:"abstract"`
	Keywords     []string   `json:"keywords"`
	ConferenceID uint64     `json:"conference_id"`
	TrackID      uint64     `json:"track_id"`
	PDFBlobRef   string     `json:"pdf_blob_ref"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

func toPaperResp(p model.Paper) paperResp {
	return paperResp{
		ID:           p.ID,
		Title:        p.Title,
		Abstract:     p.Abstract,
		Keywords:     splitKeywords(p.Keywords),
		ConferenceID: p.ConferenceID,
		TrackID:      p.TrackID,
		PDFBlobRef:   p.PDFBlobRef,
		Status:       string(p.Status),
		SubmittedAt:  p.SubmittedAt,
	}
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func joinKeywords(in []string) string {
	var out []string
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return strings.Join(out, ",")
}

// resolvableBlobRef checks that the PDF reference parses as a usable
// blob locator.  The blob store itself is an external collaborator; any
// absolute URL or non-empty opaque key counts as resolvable.
func resolvableBlobRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Host == "" {
		return false
	}
	return true
}

// Submit handles POST /v1/papers.  Papers land in PENDING directly, or
// DRAFT when the body sets draft=true.
func (h *PaperHandler) Submit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	var req submitPaperReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}

	var details []string
	if strings.TrimSpace(req.Title) == "" {
		details = append(details, "title: required")
	}
	if strings.TrimSpace(req.Abstract) == "" {
		details = append(details, "abstract: required")
	}
	keywords := joinKeywords(req.Keywords)
	if keywords == "" {
		details = append(details, "keywords: at least one required")
	}
	if req.ConferenceID == 0 {
		details = append(details, "conference_id: required")
	}
	if req.TrackID == 0 {
		details = append(details, "track_id: required")
	}
	if !resolvableBlobRef(req.PDFBlobRef) {
		details = append(details, "pdf_blob_ref: unresolvable reference")
	}
	if len(details) > 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid submission", details...))
	}

	p := model.Paper{
		OwnerUserID:  uid,
		Title:        strings.TrimSpace(req.Title),
		Abstract:     strings.TrimSpace(req.Abstract),
		Keywords:     keywords,
		ConferenceID: req.ConferenceID,
		TrackID:      req.TrackID,
		PDFBlobRef:   strings.TrimSpace(req.PDFBlobRef),
		Status:       model.PaperPending,
	}
	if req.Draft {
		p.Status = model.PaperDraft
	} else {
		now := time.Now().UTC()
		p.SubmittedAt = &now
	}

	authors := make([]model.PaperAuthor, 0, len(req.CoAuthors))
	for i, a := range req.CoAuthors {
		authors = append(authors, model.PaperAuthor{Position: i, Name: strings.TrimSpace(a.Name), Email: strings.ToLower(strings.TrimSpace(a.Email))})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Papers.Create(ctx, &p, authors); err != nil {
		return internalErr(c)
	}

	if p.Status == model.PaperPending {
		h.publishSubmitted(c, p)
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID, "status": string(p.Status)})
}

func (h *PaperHandler) publishSubmitted(c echo.Context, p model.Paper) {
	submitted := ""
	if p.SubmittedAt != nil {
		submitted = p.SubmittedAt.Format(time.RFC3339)
	}
	_ = queue_publisher.Publish(c.Request().Context(), queue.TypePaperSubmitted, queue.PaperSubmittedEvent{
		PaperID:      p.ID,
		OwnerUserID:  p.OwnerUserID,
		Title:        p.Title,
		ConferenceID: p.ConferenceID,
		TrackID:      p.TrackID,
		SubmittedAt:  submitted,
	})
}

// ListMine handles GET /v1/papers/mine, newest submission first.
func (h *PaperHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	papers, err := h.Papers.ListByOwner(ctx, uid)
	if err != nil {
		return internalErr(c)
	}
	out := make([]paperResp, 0, len(papers))
	for _, p := range papers {
		out = append(out, toPaperResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"papers": out, "total": len(out)})
}

// Get handles GET /v1/papers/:id.  Visible to the owner, chairs and
// admins, and reviewers assigned to the paper.
func (h *PaperHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	paperID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paperID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid paper id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	p, err := h.Papers.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "paper not found"))
		}
		return internalErr(c)
	}

	role := getRole(c)
	if p.OwnerUserID != uid && role != model.RoleChair && role != model.RoleAdmin {
		assigned := false
		if role == model.RoleReviewer {
			assigned, err = h.Assignments.HasAssignmentForPaper(ctx, paperID, uid)
			if err != nil {
				return internalErr(c)
			}
		}
		if !assigned {
			return writeErr(c, apperr.New(apperr.CodeForbidden, "no access to this paper"))
		}
	}

	authors, err := h.Papers.Authors(ctx, paperID)
	if err != nil {
		return internalErr(c)
	}
	coAuthors := make([]coAuthorReq, 0, len(authors))
	for _, a := range authors {
		coAuthors = append(coAuthors, coAuthorReq{Name: a.Name, Email: a.Email})
	}

	resp := toPaperResp(p)
	return c.JSON(http.StatusOK, echo.Map{"paper": resp, "co_authors": coAuthors})
}

// Edit handles PATCH /v1/papers/:id.  Only the owner may edit, and only
// while the paper is DRAFT or PENDING.
func (h *PaperHandler) Edit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	paperID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paperID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid paper id"))
	}
	var req editPaperReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	p, err := h.Papers.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "paper not found"))
		}
		return internalErr(c)
	}
	if p.OwnerUserID != uid {
		return writeErr(c, apperr.New(apperr.CodeForbidden, "not the owner"))
	}
	if !p.Status.Editable() {
		return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "paper can no longer be edited"))
	}

	upd := repository.ContentUpdate{}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return writeErr(c, apperr.New(apperr.CodeValidation, "title: must not be empty"))
		}
		upd.Title = &t
	}
	if req.Abstract != nil {
		a := strings.TrimSpace(*req.Abstract)
		if a == "" {
			return writeErr(c, apperr.New(apperr.CodeValidation, "abstract: must not be empty"))
		}
		upd.Abstract = &a
	}
	if req.Keywords != nil {
		k := joinKeywords(req.Keywords)
		if k == "" {
			return writeErr(c, apperr.New(apperr.CodeValidation, "keywords: at least one required"))
		}
		upd.Keywords = &k
	}
	if req.PDFBlobRef != nil {
		if !resolvableBlobRef(*req.PDFBlobRef) {
			return writeErr(c, apperr.New(apperr.CodeValidation, "pdf_blob_ref: unresolvable reference"))
		}
		ref := strings.TrimSpace(*req.PDFBlobRef)
		upd.PDFBlobRef = &ref
	}

	if err := h.Papers.UpdateContent(ctx, paperID, upd); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "paper can no longer be edited"))
		}
		return internalErr(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// SubmitDraft handles PATCH /v1/papers/:id/submit, promoting DRAFT to
// PENDING.
func (h *PaperHandler) SubmitDraft(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	paperID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paperID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid paper id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	p, err := h.Papers.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "paper not found"))
		}
		return internalErr(c)
	}
	if p.OwnerUserID != uid {
		return writeErr(c, apperr.New(apperr.CodeForbidden, "not the owner"))
	}
	if p.Status != model.PaperDraft {
		return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "only drafts can be submitted"))
	}

	now := time.Now().UTC()
	if err := h.Papers.SubmitDraft(ctx, paperID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "only drafts can be submitted"))
		}
		return internalErr(c)
	}

	p.Status = model.PaperPending
	p.SubmittedAt = &now
	h.publishSubmitted(c, p)

	return c.JSON(http.StatusOK, echo.Map{"status": "PENDING"})
}

// Withdraw handles PATCH /v1/papers/:id/withdraw.  Only the owner, only
// from DRAFT or PENDING.  Withdrawn papers stay on record.
func (h *PaperHandler) Withdraw(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	paperID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paperID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid paper id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	p, err := h.Papers.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "paper not found"))
		}
		return internalErr(c)
	}
	if p.OwnerUserID != uid {
		return writeErr(c, apperr.New(apperr.CodeForbidden, "not the owner"))
	}
	if !p.Status.CanTransition(model.PaperWithdrawn) {
		return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "paper cannot be withdrawn from "+string(p.Status)))
	}

	if err := h.Papers.Withdraw(ctx, paperID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "paper cannot be withdrawn"))
		}
		return internalErr(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "WITHDRAWN"})
}

// Decide handles PATCH /v1/papers/:id/decision.  Chair only (enforced by
// route middleware); permitted solely from PENDING, and exactly once.
func (h *PaperHandler) Decide(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	paperID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paperID == 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid paper id"))
	}
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	to := model.PaperStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if to != model.PaperAccepted && to != model.PaperRejected {
		return writeErr(c, apperr.New(apperr.CodeValidation, "status must be ACCEPTED or REJECTED"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	p, err := h.Papers.GetByID(ctx, paperID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "paper not found"))
		}
		return internalErr(c)
	}
	if !p.Status.CanTransition(to) {
		return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "decision only permitted from PENDING"))
	}

	now := time.Now().UTC()
	if err := h.Papers.Decide(ctx, paperID, uid, to, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return writeErr(c, apperr.New(apperr.CodeInvalidTransition, "decision only permitted from PENDING"))
		}
		return internalErr(c)
	}

	_ = queue_publisher.Publish(c.Request().Context(), queue.TypeDecisionRecorded, queue.DecisionRecordedEvent{
		PaperID:     paperID,
		ChairUserID: uid,
		Status:      string(to),
		DecidedAt:   now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}
