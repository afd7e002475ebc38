package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
)

// LoadSession returns domain.ErrSessionNotFound when id is unknown.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, conversation_id, role, task, context, constraints,
		user_preferences, created_at, updated_at FROM sessions WHERE id = ?`, id)

	var (
		sess                        domain.Session
		userID, conversationID      sql.NullString
		ctxJSON, consJSON, prefJSON string
		created, updated            string
	)
	if err := row.Scan(&sess.ID, &userID, &conversationID, &sess.Role, &sess.Task, &ctxJSON, &consJSON, &prefJSON, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, err
	}
	sess.UserID = userID.String
	sess.ConversationID = conversationID.String
	if err := json.Unmarshal([]byte(ctxJSON), &sess.Context); err != nil {
		return nil, fmt.Errorf("decode session context: %w", err)
	}
	if err := json.Unmarshal([]byte(consJSON), &sess.Constraints); err != nil {
		return nil, fmt.Errorf("decode session constraints: %w", err)
	}
	if err := json.Unmarshal([]byte(prefJSON), &sess.UserPreferences); err != nil {
		return nil, fmt.Errorf("decode session preferences: %w", err)
	}
	if sess.Context == nil {
		sess.Context = map[string]string{}
	}
	if sess.Constraints == nil {
		sess.Constraints = []string{}
	}
	if sess.UserPreferences == nil {
		sess.UserPreferences = map[string]any{}
	}
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return &sess, nil
}

// SaveSession upserts the session row and stamps UpdatedAt.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *domain.Session) error {
	ctxJSON, err := json.Marshal(sess.Context)
	if err != nil {
		return err
	}
	constraints := sess.Constraints
	if constraints == nil {
		constraints = []string{}
	}
	consJSON, err := json.Marshal(constraints)
	if err != nil {
		return err
	}
	prefJSON, err := json.Marshal(sess.UserPreferences)
	if err != nil {
		return err
	}
	sess.UpdatedAt = time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions
		(id, user_id, conversation_id, role, task, context, constraints, user_preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			conversation_id = excluded.conversation_id,
			role = excluded.role,
			task = excluded.task,
			context = excluded.context,
			constraints = excluded.constraints,
			user_preferences = excluded.user_preferences,
			updated_at = excluded.updated_at`,
		sess.ID, nullString(sess.UserID), nullString(sess.ConversationID), sess.Role, sess.Task,
		string(ctxJSON), string(consJSON), string(prefJSON), formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt))
	return err
}

// SaveIntent stores a parsed intent.
func (s *SQLiteStore) SaveIntent(ctx context.Context, rec domain.IntentRecord) error {
	if rec.ID == "" {
		return errors.New("intent record requires an id")
	}
	payload, err := json.Marshal(rec.Intent)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO intents (id, session_id, user_input, intent, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.UserInput, string(payload), formatTime(rec.CreatedAt))
	return err
}

// LatestIntent returns the most recently stored intent of a session.
func (s *SQLiteStore) LatestIntent(ctx context.Context, sessionID string) (domain.IntentRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, session_id, user_input, intent, created_at FROM intents
		WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, sessionID)
	var (
		rec              domain.IntentRecord
		payload, created string
	)
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.UserInput, &payload, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IntentRecord{}, false, nil
		}
		return domain.IntentRecord{}, false, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Intent); err != nil {
		return domain.IntentRecord{}, false, fmt.Errorf("decode intent: %w", err)
	}
	rec.CreatedAt = parseTime(created)
	return rec, true, nil
}

// SaveQuestions stores generated questions in one transaction.
func (s *SQLiteStore) SaveQuestions(ctx context.Context, recs []domain.QuestionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO questions
		(id, intent_id, text, priority, rationale, options, default_val, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		id := rec.ID
		if id == "" {
			id = ids.New()
		}
		options := rec.Item.Options
		if options == nil {
			options = []string{}
		}
		optJSON, err := json.Marshal(options)
		if err != nil {
			return err
		}
		var def sql.NullString
		if rec.Item.Default != nil {
			def = sql.NullString{String: *rec.Item.Default, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, rec.IntentID, rec.Item.Text, rec.Item.Priority,
			rec.Item.Rationale, string(optJSON), def, formatTime(rec.CreatedAt)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AnswerQuestion records the answer on the first question with matching text in
// the session. Reports whether a question matched.
func (s *SQLiteStore) AnswerQuestion(ctx context.Context, sessionID, question, answer string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET answer = ?, answered_at = ?
		WHERE id = (
			SELECT q.id FROM questions q JOIN intents i ON q.intent_id = i.id
			WHERE i.session_id = ? AND q.text = ?
			ORDER BY q.created_at LIMIT 1
		)`, answer, formatTime(time.Now()), sessionID, question)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// QuestionsForIntent returns stored questions in priority order.
func (s *SQLiteStore) QuestionsForIntent(ctx context.Context, intentID string) ([]domain.QuestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, intent_id, text, priority, rationale, options, default_val,
		answer, answered_at, created_at FROM questions WHERE intent_id = ? ORDER BY priority, created_at`, intentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.QuestionRecord
	for rows.Next() {
		var (
			rec                        domain.QuestionRecord
			rationale, def, answer, at sql.NullString
			optJSON, created           string
		)
		if err := rows.Scan(&rec.ID, &rec.IntentID, &rec.Item.Text, &rec.Item.Priority, &rationale, &optJSON,
			&def, &answer, &at, &created); err != nil {
			return nil, err
		}
		rec.Item.Rationale = rationale.String
		if err := json.Unmarshal([]byte(optJSON), &rec.Item.Options); err != nil {
			return nil, err
		}
		if def.Valid {
			rec.Item.Default = domain.StringPtr(def.String)
		}
		rec.Answer = answer.String
		if at.Valid {
			t := parseTime(at.String)
			rec.AnsweredAt = &t
		}
		rec.CreatedAt = parseTime(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveFeedback stores one feedback entry.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	id := fb.ID
	if id == "" {
		id = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO feedback (id, session_id, prompt_history_id, text, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, fb.SessionID, nullString(fb.PromptHistoryID), fb.Text, string(fb.Sentiment), formatTime(fb.CreatedAt))
	return err
}

// CountChildren returns how many intents, history entries and feedbacks a session has.
func (s *SQLiteStore) CountChildren(ctx context.Context, sessionID string) (int, int, int, error) {
	var intents, histories, feedbacks int
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM intents WHERE session_id = ?),
		(SELECT COUNT(*) FROM prompt_history WHERE session_id = ?),
		(SELECT COUNT(*) FROM feedback WHERE session_id = ?)`,
		sessionID, sessionID, sessionID).Scan(&intents, &histories, &feedbacks)
	return intents, histories, feedbacks, err
}
