package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-management/internal/apperr"
	"github.com/iliyamo/conference-management/internal/config"
	"github.com/iliyamo/conference-management/internal/model"
	"github.com/iliyamo/conference-management/internal/recovery"
	"github.com/iliyamo/conference-management/internal/repository"
	"github.com/iliyamo/conference-management/internal/utils"
)

// AuthHandler bundles dependencies for auth and recovery endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *recovery.Store
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, s *recovery.Store) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s}
}

// ----- DTOs -----

type questionAnswerReq struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type registerReq struct {
	Email             string              `json:"email"`
	Password          string              `json:"password"`
	FullName          string              `json:"fullname"`
	Role              string              `json:"role"`
	SecurityQuestions []questionAnswerReq `json:"security_questions"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type recoveryInitReq struct {
	Email string `json:"email"`
	Role  string `json:"role"` // display hint only, never a security boundary
}

type recoveryResetReq struct {
	Email         string `json:"email"`
	QuestionIndex *int   `json:"question_index"`
	Answer        string `json:"answer"`
	NewPassword   string `json:"new_password"`
}

type userPart struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Role     string `json:"role"`
}

// Register creates a user with exactly three security questions.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	var details []string
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		details = append(details, "email: valid address required")
	}
	if !utils.StrongEnough(req.Password) {
		details = append(details, "password: at least 8 characters")
	}
	if req.FullName == "" {
		details = append(details, "fullname: required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleAuthor
	}
	if !model.ValidRole(role) {
		details = append(details, "role: unknown role")
	}
	if len(details) > 0 {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid registration", details...))
	}

	questions, qerr := validateQuestionSet(req.SecurityQuestions)
	if qerr != nil {
		return writeErr(c, qerr)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, role, questions, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return writeErr(c, apperr.New(apperr.CodeDuplicateEmail, "email already registered"))
		}
		return internalErr(c)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"status": "created",
		"user":   userPart{ID: uid, Email: req.Email, FullName: req.FullName, Role: role},
	})
}

// validateQuestionSet enforces exactly three pairs with distinct,
// non-empty question texts and non-empty answers.
func validateQuestionSet(in []questionAnswerReq) ([]repository.QuestionAnswer, *apperr.Error) {
	if len(in) != model.SecurityQuestionCount {
		return nil, apperr.New(apperr.CodeInvalidQuestionSet, "exactly 3 security questions required")
	}
	seen := make(map[string]bool, len(in))
	out := make([]repository.QuestionAnswer, 0, len(in))
	for _, qa := range in {
		q := strings.TrimSpace(qa.Question)
		if q == "" || strings.TrimSpace(qa.Answer) == "" {
			return nil, apperr.New(apperr.CodeInvalidQuestionSet, "questions and answers must be non-empty")
		}
		key := strings.ToLower(q)
		if seen[key] {
			return nil, apperr.New(apperr.CodeInvalidQuestionSet, "question texts must be distinct")
		}
		seen[key] = true
		out = append(out, repository.QuestionAnswer{Question: q, Answer: qa.Answer})
	}
	return out, nil
}

// Login verifies credentials and issues an access token.  Unknown email
// and wrong password produce an identical error body, and the unknown
// branch burns a bcrypt comparison so the timing matches too.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return writeErr(c, apperr.New(apperr.CodeValidation, "email and password required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			utils.DummyCompare(req.Password)
			return writeErr(c, apperr.New(apperr.CodeInvalidCredentials, "invalid credentials"))
		}
		return internalErr(c)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return writeErr(c, apperr.New(apperr.CodeInvalidCredentials, "invalid credentials"))
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalErr(c)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":   access.Token,
		"expires": access.Exp,
		"user":    userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role},
	})
}

// Me returns the authenticated user's profile, never hashes.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "user not found"))
		}
		return internalErr(c)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role})
}

// ChangePassword lets an authenticated user rotate their password after
// proving the old one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeErr(c, apperr.New(apperr.CodeUnauthenticated, "unauthenticated"))
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return writeErr(c, apperr.New(apperr.CodeValidation, "old and new password required"))
	}
	if req.OldPassword == req.NewPassword {
		return writeErr(c, apperr.New(apperr.CodeValidation, "new password must differ from the old one"))
	}
	if !utils.StrongEnough(req.NewPassword) {
		return writeErr(c, apperr.New(apperr.CodeValidation, "password: at least 8 characters"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return writeErr(c, apperr.New(apperr.CodeNotFound, "user not found"))
		}
		return internalErr(c)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return writeErr(c, apperr.New(apperr.CodeInvalidCredentials, "invalid credentials"))
	}

	newHash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internalErr(c)
	}
	if err := h.Users.UpdatePassword(ctx, u.Email, newHash); err != nil {
		return internalErr(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "password_updated"})
}

// RecoveryInit starts the forgot-password protocol: pick one of the
// account's security questions at random and open a recovery session.
// Unknown emails receive a stable decoy question so the response shape
// never reveals whether the account exists, unless the deployment
// explicitly opted into the revealing behavior.
func (h *AuthHandler) RecoveryInit(c echo.Context) error {
	var req recoveryInitReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return writeErr(c, apperr.New(apperr.CodeValidation, "email required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	idx, question, err := h.Users.PickRandomQuestion(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if h.Cfg.RecoveryRevealUnknown {
				return writeErr(c, apperr.New(apperr.CodeNotFound, "account not found"))
			}
			// Decoy path: same response shape and a real session, so
			// the reset step fails with the same WrongAnswer/attempt-cap
			// sequence an existing account would produce.
			didx, dq := recovery.DecoyQuestion(email)
			if _, err := h.Sessions.Start(ctx, email, didx); err != nil {
				return internalErr(c)
			}
			return c.JSON(http.StatusOK, echo.Map{
				"question":       dq,
				"question_index": didx,
			})
		}
		return internalErr(c)
	}

	if _, err := h.Sessions.Start(ctx, email, idx); err != nil {
		return internalErr(c)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"question":       question,
		"question_index": idx,
	})
}

// RecoveryReset completes the protocol: verify the answer against the
// session's question, enforce the attempt cap, set the new password and
// consume the session (single use).
func (h *AuthHandler) RecoveryReset(c echo.Context) error {
	var req recoveryResetReq
	if err := c.Bind(&req); err != nil {
		return writeErr(c, apperr.New(apperr.CodeValidation, "invalid body"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.QuestionIndex == nil || strings.TrimSpace(req.Answer) == "" || req.NewPassword == "" {
		return writeErr(c, apperr.New(apperr.CodeValidation, "email, question_index, answer and new_password required"))
	}
	if !utils.StrongEnough(req.NewPassword) {
		return writeErr(c, apperr.New(apperr.CodeValidation, "password: at least 8 characters"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	sess, err := h.Sessions.Get(ctx, email)
	if err != nil {
		if errors.Is(err, recovery.ErrSessionNotFound) {
			return writeErr(c, apperr.New(apperr.CodeSessionExpired, "recovery session expired"))
		}
		return internalErr(c)
	}
	if sess.QuestionIndex != *req.QuestionIndex {
		// answering a different question than the one issued counts as
		// a failure against the live session
		return h.recoveryFail(c, ctx, email)
	}

	ok, err := h.Users.VerifyAnswer(ctx, email, sess.QuestionIndex, req.Answer)
	if err != nil {
		return internalErr(c)
	}
	if !ok {
		return h.recoveryFail(c, ctx, email)
	}

	newHash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internalErr(c)
	}

	// Consume first: the session is single use, and whichever request
	// deletes it wins.  Only the winner may update the password.
	if err := h.Sessions.Consume(ctx, email, sess.ID); err != nil {
		if errors.Is(err, recovery.ErrSessionNotFound) {
			return writeErr(c, apperr.New(apperr.CodeSessionExpired, "recovery session expired"))
		}
		return internalErr(c)
	}
	if err := h.Users.UpdatePassword(ctx, email, newHash); err != nil {
		return internalErr(c)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "password_updated"})
}

// recoveryFail registers a wrong answer and renders the outcome: a plain
// WrongAnswer while budget remains, SessionExpired once the cap tripped
// or the session is gone.
func (h *AuthHandler) recoveryFail(c echo.Context, ctx context.Context, email string) error {
	err := h.Sessions.Fail(ctx, email)
	switch {
	case err == nil:
		return writeErr(c, apperr.New(apperr.CodeWrongAnswer, "answer does not match"))
	case errors.Is(err, recovery.ErrTooManyAttempts), errors.Is(err, recovery.ErrSessionNotFound):
		return writeErr(c, apperr.New(apperr.CodeSessionExpired, "recovery session expired"))
	default:
		return internalErr(c)
	}
}
