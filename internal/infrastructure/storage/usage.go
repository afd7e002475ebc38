package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doeshing/promptmate/internal/domain"
)

// RecordUsage appends consumed tokens for a user.
func (s *SQLiteStore) RecordUsage(ctx context.Context, userID string, tokens int, model string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO usage (user_id, model, tokens, created_at) VALUES (?, ?, ?, ?)`,
		userID, model, tokens, formatTime(time.Now()))
	return err
}

// UsageSince sums a user's tokens recorded at or after since.
func (s *SQLiteStore) UsageSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(tokens) FROM usage WHERE user_id = ? AND created_at >= ?`,
		userID, formatTime(since)).Scan(&total)
	return total.Int64, err
}

// SetCustomInstructions upserts a user's custom instructions.
func (s *SQLiteStore) SetCustomInstructions(ctx context.Context, ci domain.CustomInstructions) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO custom_instructions (user_id, instructions, active, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET instructions = excluded.instructions, active = excluded.active,
			updated_at = excluded.updated_at`,
		ci.UserID, ci.Instructions, boolToInt(ci.Active), formatTime(time.Now()))
	return err
}

// ActiveInstructions returns the user's instructions when present, active and non-blank.
func (s *SQLiteStore) ActiveInstructions(ctx context.Context, userID string) (domain.CustomInstructions, bool, error) {
	var (
		ci     = domain.CustomInstructions{UserID: userID}
		active int
	)
	err := s.db.QueryRowContext(ctx, `SELECT instructions, active FROM custom_instructions WHERE user_id = ?`, userID).
		Scan(&ci.Instructions, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return ci, false, nil
	}
	if err != nil {
		return ci, false, err
	}
	ci.Active = active == 1
	return ci, ci.Active && strings.TrimSpace(ci.Instructions) != "", nil
}
