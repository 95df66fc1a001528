package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/exhale-app/exhale/internal/model"
)

// ErrNoEmail is returned by ResolveEmail when neither the identity
// address nor the profile fallback is present for the user.
var ErrNoEmail = errors.New("no email address on record")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Email, &u.ContactEmail, &u.Name, &u.Timezone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, email, contact_email, name, timezone, created_at, updated_at`

func (s *UserStore) Create(email, contactEmail, name, timezone string) (*model.User, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	result, err := s.db.Exec(
		`INSERT INTO users (email, contact_email, name, timezone) VALUES (?, ?, ?, ?)`,
		email, contactEmail, name, timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ResolveEmail returns the address reminders should be sent to. The
// identity address wins; the profile-replicated contact address is the
// fallback, since identity sync doesn't always reach this table.
func (s *UserStore) ResolveEmail(userID int64) (string, error) {
	u, err := s.GetByID(userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", fmt.Errorf("user %d: %w", userID, ErrNoEmail)
	}
	if u.Email != "" {
		return u.Email, nil
	}
	if u.ContactEmail != "" {
		return u.ContactEmail, nil
	}
	return "", fmt.Errorf("user %d: %w", userID, ErrNoEmail)
}

func (s *UserStore) UpdateTimezone(id int64, timezone string) error {
	_, err := s.db.Exec(
		`UPDATE users SET timezone = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		timezone, id,
	)
	if err != nil {
		return fmt.Errorf("update user timezone: %w", err)
	}
	return nil
}
