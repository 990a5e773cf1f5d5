package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/conference-management/internal/model"
	"github.com/iliyamo/conference-management/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// QuestionAnswer is a plaintext question/answer pair supplied at
// registration.  The answer is hashed before it reaches the database.
type QuestionAnswer struct {
	Question string
	Answer   string
}

// Create inserts a user together with its three security questions in
// one transaction and returns the new user ID.  The password and every
// answer are bcrypt-hashed; plaintext is never stored.
func (r *UserRepo) Create(ctx context.Context, email, password, fullname, role string, questions []QuestionAnswer, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
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
		"INSERT INTO users (email, fullname, role, password_hash) VALUES (?,?,?,?)",
		email, fullname, role, hash)
	if err != nil {
		// 1062 = duplicate entry on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, qa := range questions {
		answerHash, err := utils.HashAnswer(qa.Answer, cost)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO security_questions (user_id, idx, question, answer_hash) VALUES (?,?,?,?)",
			uint64(id), i, strings.TrimSpace(qa.Question), answerHash); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,fullname,role,password_hash,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,fullname,role,password_hash,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// PickRandomQuestion returns one of the user's security questions chosen
// by the database.  ErrNotFound when the email is unknown; callers that
// need enumeration resistance must mask that themselves.
func (r *UserRepo) PickRandomQuestion(ctx context.Context, email string) (int, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var idx int
	var question string
	err := r.DB.QueryRowContext(ctx,
		`SELECT sq.idx, sq.question FROM security_questions sq
		 JOIN users u ON u.id = sq.user_id
		 WHERE u.email = ? ORDER BY RAND() LIMIT 1`,
		email).Scan(&idx, &question)
	if err == sql.ErrNoRows {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", err
	}
	return idx, question, nil
}

// VerifyAnswer compares the candidate answer against the stored hash for
// the question at the given index.  Comparison is case-insensitive and
// whitespace-trimmed.  Unknown email or index burns a dummy bcrypt
// comparison so timing does not reveal which part was wrong.
func (r *UserRepo) VerifyAnswer(ctx context.Context, email string, questionIndex int, answer string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var answerHash string
	err := r.DB.QueryRowContext(ctx,
		`SELECT sq.answer_hash FROM security_questions sq
		 JOIN users u ON u.id = sq.user_id
		 WHERE u.email = ? AND sq.idx = ? LIMIT 1`,
		email, questionIndex).Scan(&answerHash)
	if err == sql.ErrNoRows {
		return utils.DummyCompare(answer), nil
	}
	if err != nil {
		return false, err
	}
	return utils.VerifyAnswer(answerHash, answer), nil
}

// UpdatePassword overwrites the password hash for the account.  Security
// questions are not touched.
func (r *UserRepo) UpdatePassword(ctx context.Context, email, newHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE email=?", newHash, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
