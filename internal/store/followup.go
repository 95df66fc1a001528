package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/exhale-app/exhale/internal/model"
)

type FollowUpStore struct {
	db *sql.DB
}

func NewFollowUpStore(db *sql.DB) *FollowUpStore {
	return &FollowUpStore{db: db}
}

const followUpCols = `id, user_id, milestone_type, scheduled_for, timezone, status,
	magic_link_token, email_sent_at, completed_at, response_session_id, created_at`

func scanFollowUp(scanner interface{ Scan(...any) error }) (*model.FollowUpMilestone, error) {
	var m model.FollowUpMilestone
	var emailSentAt, completedAt sql.NullTime

	err := scanner.Scan(
		&m.ID, &m.UserID, &m.MilestoneType, &m.ScheduledFor, &m.Timezone, &m.Status,
		&m.MagicLinkToken, &emailSentAt, &completedAt, &m.ResponseSessionID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if emailSentAt.Valid {
		m.EmailSentAt = &emailSentAt.Time
	}
	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}
	return &m, nil
}

// CreateMilestones inserts the given milestone rows in one transaction.
// A (user, milestone_type) pair that already exists is left untouched,
// so a repeated ceremony completion is a no-op. Returns the rows that
// were actually inserted.
func (s *FollowUpStore) CreateMilestones(milestones []model.FollowUpMilestone) ([]model.FollowUpMilestone, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var created []model.FollowUpMilestone
	for _, m := range milestones {
		id := uuid.NewString()
		token, err := newMagicLinkToken()
		if err != nil {
			return nil, err
		}

		result, err := tx.Exec(
			`INSERT INTO follow_up_milestones (id, user_id, milestone_type, scheduled_for, timezone, status, magic_link_token)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id, milestone_type) DO NOTHING`,
			id, m.UserID, m.MilestoneType, m.ScheduledFor.UTC(), m.Timezone, model.CheckInScheduled, token,
		)
		if err != nil {
			return nil, fmt.Errorf("insert milestone %s: %w", m.MilestoneType, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			continue
		}

		row := tx.QueryRow(`SELECT `+followUpCols+` FROM follow_up_milestones WHERE id = ?`, id)
		inserted, err := scanFollowUp(row)
		if err != nil {
			return nil, fmt.Errorf("read created milestone: %w", err)
		}
		created = append(created, *inserted)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (s *FollowUpStore) ListByUser(userID int64) ([]model.FollowUpMilestone, error) {
	rows, err := s.db.Query(
		`SELECT `+followUpCols+` FROM follow_up_milestones WHERE user_id = ? ORDER BY scheduled_for`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()
	return scanFollowUps(rows)
}

func (s *FollowUpStore) GetByToken(token string) (*model.FollowUpMilestone, error) {
	row := s.db.QueryRow(`SELECT `+followUpCols+` FROM follow_up_milestones WHERE magic_link_token = ?`, token)
	m, err := scanFollowUp(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get milestone by token: %w", err)
	}
	return m, nil
}

// ListDue returns scheduled milestones inside the send window.
func (s *FollowUpStore) ListDue(from, to time.Time) ([]model.FollowUpMilestone, error) {
	rows, err := s.db.Query(
		`SELECT `+followUpCols+` FROM follow_up_milestones
		 WHERE status = ? AND scheduled_for >= ? AND scheduled_for <= ? ORDER BY scheduled_for`,
		model.CheckInScheduled, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due milestones: %w", err)
	}
	defer rows.Close()
	return scanFollowUps(rows)
}

func (s *FollowUpStore) MarkSent(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE follow_up_milestones SET status = ?, email_sent_at = ? WHERE id = ? AND status = ?`,
		model.CheckInSent, at.UTC(), id, model.CheckInScheduled,
	)
	if err != nil {
		return fmt.Errorf("mark milestone sent: %w", err)
	}
	return nil
}

func (s *FollowUpStore) Complete(id string, userID int64, responseSessionID string, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE follow_up_milestones SET status = ?, completed_at = ?, response_session_id = ?
		 WHERE id = ? AND user_id = ? AND status IN (?, ?)`,
		model.CheckInCompleted, at.UTC(), responseSessionID, id, userID, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return false, fmt.Errorf("complete milestone: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *FollowUpStore) Skip(id string, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE follow_up_milestones SET status = ?
		 WHERE id = ? AND user_id = ? AND status IN (?, ?)`,
		model.CheckInSkipped, id, userID, model.CheckInScheduled, model.CheckInSent,
	)
	if err != nil {
		return false, fmt.Errorf("skip milestone: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func scanFollowUps(rows *sql.Rows) ([]model.FollowUpMilestone, error) {
	var milestones []model.FollowUpMilestone
	for rows.Next() {
		m, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}
