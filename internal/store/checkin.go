package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/exhale-app/exhale/internal/model"
)

type CheckInStore struct {
	db *sql.DB
}

func NewCheckInStore(db *sql.DB) *CheckInStore {
	return &CheckInStore{db: db}
}

const checkInCols = `id, user_id, scheduled_for, timezone, type, session_id, topic_key, prompt, context, status,
	magic_link_token, email_sent_at, opened_at, completed_at, response_session_id, created_at, updated_at`

func scanCheckIn(scanner interface{ Scan(...any) error }) (*model.CheckIn, error) {
	var ci model.CheckIn
	var emailSentAt, openedAt, completedAt sql.NullTime

	err := scanner.Scan(
		&ci.ID, &ci.UserID, &ci.ScheduledFor, &ci.Timezone, &ci.Type, &ci.SessionID, &ci.TopicKey,
		&ci.Prompt, &ci.Context, &ci.Status, &ci.MagicLinkToken,
		&emailSentAt, &openedAt, &completedAt, &ci.ResponseSessionID, &ci.CreatedAt, &ci.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if emailSentAt.Valid {
		ci.EmailSentAt = &emailSentAt.Time
	}
	if openedAt.Valid {
		ci.OpenedAt = &openedAt.Time
	}
	if completedAt.Valid {
		ci.CompletedAt = &completedAt.Time
	}
	return &ci, nil
}

// newMagicLinkToken returns a 32-byte crypto-random hex token (256 bits).
func newMagicLinkToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create inserts a new check-in with status scheduled, assigning its id
// and its magic-link token. Tokens are issued exactly once, here.
func (s *CheckInStore) Create(ci *model.CheckIn) (*model.CheckIn, error) {
	id := uuid.NewString()
	token, err := newMagicLinkToken()
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO check_ins (id, user_id, scheduled_for, timezone, type, session_id, topic_key, prompt, context, status, magic_link_token)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ci.UserID, ci.ScheduledFor.UTC(), ci.Timezone, ci.Type, ci.SessionID, ci.TopicKey,
		ci.Prompt, ci.Context, model.CheckInScheduled, token,
	)
	if err != nil {
		return nil, fmt.Errorf("insert check-in: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+checkInCols+` FROM check_ins WHERE id = ?`, id)
	created, err := scanCheckIn(row)
	if err != nil {
		return nil, fmt.Errorf("read created check-in: %w", err)
	}
	return created, nil
}

// GetByID returns the check-in only if it belongs to the user.
func (s *CheckInStore) GetByID(id string, userID int64) (*model.CheckIn, error) {
	row := s.db.QueryRow(`SELECT `+checkInCols+` FROM check_ins WHERE id = ? AND user_id = ?`, id, userID)
	ci, err := scanCheckIn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get check-in: %w", err)
	}
	return ci, nil
}

func (s *CheckInStore) GetByToken(token string) (*model.CheckIn, error) {
	row := s.db.QueryRow(`SELECT `+checkInCols+` FROM check_ins WHERE magic_link_token = ?`, token)
	ci, err := scanCheckIn(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get check-in by token: %w", err)
	}
	return ci, nil
}

// ListPending returns the user's scheduled and sent check-ins ordered by
// scheduled time. Expiration filtering is the caller's responsibility.
func (s *CheckInStore) ListPending(userID int64) ([]model.CheckIn, error) {
	rows, err := s.db.Query(
		`SELECT `+checkInCols+` FROM check_ins
		 WHERE user_id = ? AND status IN (?, ?) ORDER BY scheduled_for`,
		userID, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending check-ins: %w", err)
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

// ListActiveByType returns the user's scheduled/sent check-ins of one
// type, the input to the scheduler's conflict check.
func (s *CheckInStore) ListActiveByType(userID int64, typ model.CheckInType) ([]model.CheckIn, error) {
	rows, err := s.db.Query(
		`SELECT `+checkInCols+` FROM check_ins
		 WHERE user_id = ? AND type = ? AND status IN (?, ?) ORDER BY scheduled_for`,
		userID, typ, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return nil, fmt.Errorf("list active check-ins: %w", err)
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

// ListDue returns scheduled check-ins whose send time falls inside the
// window, across all users.
func (s *CheckInStore) ListDue(from, to time.Time) ([]model.CheckIn, error) {
	rows, err := s.db.Query(
		`SELECT `+checkInCols+` FROM check_ins
		 WHERE status = ? AND scheduled_for >= ? AND scheduled_for <= ? ORDER BY scheduled_for`,
		model.CheckInScheduled, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due check-ins: %w", err)
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

// MarkSent transitions scheduled → sent and records the send time.
// A row already past scheduled is left untouched.
func (s *CheckInStore) MarkSent(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE check_ins SET status = ?, email_sent_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		model.CheckInSent, at.UTC(), id, model.CheckInScheduled,
	)
	if err != nil {
		return fmt.Errorf("mark check-in sent: %w", err)
	}
	return nil
}

// MarkOpened records the first open. Status is unchanged; later opens
// are no-ops.
func (s *CheckInStore) MarkOpened(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE check_ins SET opened_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND opened_at IS NULL AND status IN (?, ?)`,
		at.UTC(), id, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return fmt.Errorf("mark check-in opened: %w", err)
	}
	return nil
}

// Complete transitions to completed and links the response session.
// Returns false without mutation when the row is missing, belongs to
// another user, or is already terminal.
func (s *CheckInStore) Complete(id string, userID int64, responseSessionID string, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE check_ins SET status = ?, completed_at = ?, response_session_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND status IN (?, ?)`,
		model.CheckInCompleted, at.UTC(), responseSessionID, id, userID, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return false, fmt.Errorf("complete check-in: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Skip transitions to skipped. Terminal and silent: no reschedule.
// Same false rules as Complete.
func (s *CheckInStore) Skip(id string, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE check_ins SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND status IN (?, ?)`,
		model.CheckInSkipped, id, userID, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return false, fmt.Errorf("skip check-in: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanCheckIns(rows *sql.Rows) ([]model.CheckIn, error) {
	var checkIns []model.CheckIn
	for rows.Next() {
		ci, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		checkIns = append(checkIns, *ci)
	}
	return checkIns, rows.Err()
}
