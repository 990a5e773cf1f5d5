// Package recovery implements the server-side state of the
// forgot-password protocol: one short-lived session per email binding
// the selected security question, an attempt counter and a TTL.
// Sessions live in Redis so every instance of the service sees the same
// state and expiry needs no background timers.
package recovery

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound covers expired, consumed and never-created
	// sessions alike; callers must not distinguish them.
	ErrSessionNotFound = errors.New("recovery session not found")
	// ErrTooManyAttempts is returned when a wrong answer exhausts the
	// attempt budget.  The session is already invalidated at that point.
	ErrTooManyAttempts = errors.New("recovery attempts exceeded")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("recovery store unavailable")
)

// Session is the ephemeral state of one in-flight recovery attempt.
// Only the most recently created session per email is honored: starting
// a new one overwrites the previous key.
type Session struct {
	ID            string `json:"id"`
	QuestionIndex int    `json:"question_index"`
	Attempts      int    `json:"attempts"`
	CreatedAt     int64  `json:"created_at"`
}

// Store keeps recovery sessions in Redis keyed by normalized email.
type Store struct {
	redis       *redis.Client
	prefix      string
	ttl         time.Duration
	maxAttempts int
}

// NewStore builds a Store.  maxAttempts is the number of wrong answers
// tolerated before the session fails; ttl bounds the whole attempt.
func NewStore(rdb *redis.Client, prefix string, ttl time.Duration, maxAttempts int) *Store {
	if prefix == "" {
		prefix = "recovery"
	}
	return &Store{redis: rdb, prefix: prefix, ttl: ttl, maxAttempts: maxAttempts}
}

func (s *Store) key(email string) string {
	return s.prefix + ":" + normalizeEmail(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Start creates a new session bound to the selected question and stores
// it under the email's key, displacing any earlier session for that
// email (newest wins).
func (s *Store) Start(ctx context.Context, email string, questionIndex int) (Session, error) {
	sess := Session{
		ID:            uuid.NewString(),
		QuestionIndex: questionIndex,
		CreatedAt:     time.Now().UTC().Unix(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.redis.Set(ctx, s.key(email), data, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return sess, nil
}

// Get loads the live session for an email, if any.
func (s *Store) Get(ctx context.Context, email string) (Session, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// Fail records a wrong answer.  The increment runs under WATCH so two
// concurrent wrong answers cannot share an attempt slot.  When the
// budget is exhausted the session is deleted and ErrTooManyAttempts is
// returned; every later call reports ErrSessionNotFound.
func (s *Store) Fail(ctx context.Context, email string) error {
	key := s.key(email)
	const maxRetries = 4

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			var sess Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return ErrSessionNotFound
			}

			sess.Attempts++
			if sess.Attempts > s.maxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrTooManyAttempts
			}

			ttl, err := tx.TTL(ctx, key).Result()
			if err != nil || ttl <= 0 {
				ttl = s.ttl
			}
			updated, err := json.Marshal(sess)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrTooManyAttempts):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return nil
	}
	return ErrSessionNotFound
}

// Consume deletes the session after a successful reset.  Single use:
// whichever request deletes the key wins, any replay sees
// ErrSessionNotFound.  Because the key is per-email, consuming also
// invalidates every earlier session for that email.
func (s *Store) Consume(ctx context.Context, email, sessionID string) error {
	key := s.key(email)
	const maxRetries = 4

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			var sess Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return ErrSessionNotFound
			}
			if sess.ID != sessionID {
				// a newer session displaced this one
				return ErrSessionNotFound
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	return ErrSessionNotFound
}

// decoyQuestions is the pool served for unknown emails so the init
// response has the same shape whether or not the account exists.
var decoyQuestions = []string{
	"What was the name of your first school?",
	"What is your mother's maiden name?",
	"In what city were you born?",
}

// DecoyQuestion picks a question for an unknown email.  The choice is a
// stable function of the email so repeated probes always see the same
// question and cannot detect the decoy by variance.
func DecoyQuestion(email string) (int, string) {
	sum := sha256.Sum256([]byte(normalizeEmail(email)))
	n := binary.BigEndian.Uint32(sum[:4])
	idx := int(n % uint32(len(decoyQuestions)))
	return idx, decoyQuestions[idx]
}
