package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/repository"
)

// UserStore implements repository.UserRepository on top of a shared DB.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, name, email, phone, auth_method, password_hash,
	is_active, location, avatar, preferences, created_at, updated_at`

// Create inserts a new user. The ID (an xid: 20 chars, URL-safe, sortable
// by creation time) and both timestamps are generated here and written back
// onto the caller's struct.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.AuthMethod,
		user.PasswordHash,
		user.IsActive,
		user.Profile.Location,
		user.Profile.Avatar,
		encodeJSON(user.Profile.Preferences),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// The UNIQUE index on email is the only constraint a caller can
		// trip; translate it so services can answer 409 instead of 500.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u           model.User
		preferences string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.AuthMethod,
		&u.PasswordHash,
		&u.IsActive,
		&u.Profile.Location,
		&u.Profile.Avatar,
		&preferences,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	decodeJSON(preferences, &u.Profile.Preferences)
	return &u, nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email. Email is unique, so at most one
// row can match.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return u, nil
}

// Update persists the mutable fields of an existing user and refreshes
// UpdatedAt. ID, email, auth method, and CreatedAt are immutable here.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, phone = ?, is_active = ?, location = ?, avatar = ?,
		     preferences = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Phone,
		user.IsActive,
		user.Profile.Location,
		user.Profile.Avatar,
		encodeJSON(user.Profile.Preferences),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// SetPassword stores a bcrypt hash for the given user.
func (s *UserStore) SetPassword(ctx context.Context, id, hash string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting password for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

// Delete removes a user and reports whether a row was deleted. Deleting an
// absent user is a no-op, not an error — the cascade in the account service
// calls this unconditionally.
func (s *UserStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List returns all users, oldest first.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// Put writes a user record exactly as given — IDs and timestamps are not
// regenerated. Used by import to overwrite the matching key.
func (s *UserStore) Put(ctx context.Context, user *model.User) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.AuthMethod,
		user.PasswordHash,
		user.IsActive,
		user.Profile.Location,
		user.Profile.Avatar,
		encodeJSON(user.Profile.Preferences),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: putting user %s: %w", user.ID, err)
	}
	return nil
}
