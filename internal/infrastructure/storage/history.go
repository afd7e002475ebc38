package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
)

// SavePromptHistory inserts one immutable audit row.
func (s *SQLiteStore) SavePromptHistory(ctx context.Context, h domain.PromptHistory) error {
	id := h.ID
	if id == "" {
		id = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO prompt_history
		(id, session_id, prompt_hash, original_prompt, synthesized_prompt, model_used, provider, response,
		 tokens_used, temperature, quality_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, h.SessionID, h.PromptHash, h.OriginalPrompt, h.SynthesizedPrompt, h.ModelUsed, h.Provider,
		h.Response, h.TokensUsed, h.Temperature, nullString(string(h.QualityLevel)), formatTime(h.CreatedAt))
	return err
}

// ListPromptHistory returns entries newest first. An empty sessionID lists all sessions.
func (s *SQLiteStore) ListPromptHistory(ctx context.Context, sessionID string, limit int) ([]domain.PromptHistory, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, session_id, prompt_hash, original_prompt, synthesized_prompt, model_used, provider,
		response, tokens_used, temperature, quality_level, created_at FROM prompt_history`)
	var args []interface{}
	if sessionID != "" {
		builder.WriteString(" WHERE session_id = ?")
		args = append(args, sessionID)
	}
	builder.WriteString(" ORDER BY created_at DESC, id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PromptHistory
	for rows.Next() {
		var (
			h       domain.PromptHistory
			quality sql.NullString
			created string
		)
		if err := rows.Scan(&h.ID, &h.SessionID, &h.PromptHash, &h.OriginalPrompt, &h.SynthesizedPrompt, &h.ModelUsed,
			&h.Provider, &h.Response, &h.TokensUsed, &h.Temperature, &quality, &created); err != nil {
			return nil, err
		}
		h.QualityLevel = domain.QualityLevel(quality.String)
		h.CreatedAt = parseTime(created)
		out = append(out, h)
	}
	return out, rows.Err()
}
