package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
)

// SaveMessage appends one conversation turn.
func (s *SQLiteStore) SaveMessage(ctx context.Context, m domain.Message) error {
	id := m.ID
	if id == "" {
		id = ids.New()
	}
	meta, err := encodeMeta(m.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, id, m.ConversationID, m.Role, m.Content, meta, formatTime(m.CreatedAt))
	return err
}

// RecentMessages returns the last limit messages of a conversation, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, role, content, metadata, created_at FROM (
			SELECT * FROM messages WHERE conversation_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m       domain.Message
			meta    sql.NullString
			created string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &meta, &created); err != nil {
			return nil, err
		}
		if m.Metadata, err = decodeMeta(meta); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveMemory appends an embedded memory. Memories are never updated.
func (s *SQLiteStore) SaveMemory(ctx context.Context, m domain.ConversationMemory) error {
	if m.ID == "" {
		return errors.New("memory requires an id")
	}
	meta, err := encodeMeta(m.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO conversation_memory
		(id, user_id, conversation_id, message_id, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.ConversationID, nullString(m.MessageID), m.Content, encodeVector(m.Embedding), meta, formatTime(m.CreatedAt))
	return err
}

// MemoriesByUser returns every memory of a user in insertion order, embeddings included.
func (s *SQLiteStore) MemoriesByUser(ctx context.Context, userID string) ([]domain.ConversationMemory, error) {
	return s.queryMemories(ctx, `WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// MemoriesByID loads the given memories keyed by id.
func (s *SQLiteStore) MemoriesByID(ctx context.Context, memoryIDs []string) (map[string]domain.ConversationMemory, error) {
	out := make(map[string]domain.ConversationMemory, len(memoryIDs))
	if len(memoryIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(memoryIDs)), ",")
	args := make([]interface{}, len(memoryIDs))
	for i, id := range memoryIDs {
		args[i] = id
	}
	mems, err := s.queryMemories(ctx, "WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	for _, m := range mems {
		out[m.ID] = m
	}
	return out, nil
}

func (s *SQLiteStore) queryMemories(ctx context.Context, where string, args ...interface{}) ([]domain.ConversationMemory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, conversation_id, message_id, content, embedding, metadata, created_at
		FROM conversation_memory `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ConversationMemory
	for rows.Next() {
		var (
			m               domain.ConversationMemory
			messageID, meta sql.NullString
			blob            []byte
			created         string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.ConversationID, &messageID, &m.Content, &blob, &meta, &created); err != nil {
			return nil, err
		}
		m.MessageID = messageID.String
		m.Embedding = decodeVector(blob)
		if m.Metadata, err = decodeMeta(meta); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// encodeVector packs float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func encodeMeta(meta map[string]any) (sql.NullString, error) {
	if len(meta) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeMeta(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(ns.String), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
