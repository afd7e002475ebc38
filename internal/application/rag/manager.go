// Package rag stores embedded conversation memories and retrieves the ones
// relevant to a new query.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
	"github.com/doeshing/promptmate/internal/pkg/logger"
	"github.com/doeshing/promptmate/internal/ports"
)

const contextHeader = "[관련 대화 기록]"

// ErrDisabled is returned when no embedder is configured.
var ErrDisabled = errors.New("retrieval disabled: no embedder configured")

// Options tunes a Manager. Zero values take the domain defaults.
type Options struct {
	EmbeddingModel string
	Window         int
	SearchTopK     int
}

// Manager embeds conversation content into a per-user vector index backed by
// the memory repository. The index is rebuilt from the repository whenever a
// user's partition is empty but memories exist.
type Manager struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	memories ports.MemoryRepository
	opts     Options
	logger   ports.Logger
	rebuilds singleflight.Group
	now      func() time.Time
}

// NewManager wires a manager. A nil embedder disables retrieval without failing
// callers that only read context.
func NewManager(embedder ports.Embedder, index ports.VectorIndex, memories ports.MemoryRepository, opts Options, log ports.Logger) *Manager {
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = domain.DefaultEmbeddingModel
	}
	if opts.Window <= 0 {
		opts.Window = domain.DefaultMemoryWindow
	}
	if opts.SearchTopK <= 0 {
		opts.SearchTopK = domain.DefaultSearchTopK
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		embedder: embedder,
		index:    index,
		memories: memories,
		opts:     opts,
		logger:   log,
		now:      time.Now,
	}
}

// Enabled reports whether an embedder is configured.
func (m *Manager) Enabled() bool {
	return m.embedder != nil
}

// CreateEmbedding embeds text.
func (m *Manager) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}
	return m.embedder.Embed(ctx, text)
}

// AddConversationToMemory embeds one message, or when message is nil the last
// Window messages of the conversation, and stores the result. It returns nil
// without error when there is nothing to embed.
func (m *Manager) AddConversationToMemory(ctx context.Context, userID, conversationID string, message *domain.Message) (*domain.ConversationMemory, error) {
	if userID == "" {
		return nil, errors.New("memory requires a user")
	}
	content, err := m.memoryContent(ctx, conversationID, message)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	vec, err := m.CreateEmbedding(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed memory: %w", err)
	}
	if err := m.ensureIndex(ctx, userID); err != nil {
		return nil, err
	}

	mem := domain.ConversationMemory{
		ID:             ids.New(),
		UserID:         userID,
		ConversationID: conversationID,
		Content:        content,
		Embedding:      vec,
		Metadata: map[string]any{
			"model":          m.opts.EmbeddingModel,
			"dimension":      len(vec),
			"content_length": len([]rune(content)),
		},
		CreatedAt: m.now().UTC(),
	}
	if message != nil {
		mem.MessageID = message.ID
	}
	if err := m.memories.SaveMemory(ctx, mem); err != nil {
		return nil, fmt.Errorf("save memory: %w", err)
	}
	if err := m.index.Add(userID, mem.ID, vec); err != nil {
		return nil, fmt.Errorf("index memory: %w", err)
	}
	m.logger.Info("memory added", map[string]interface{}{
		"memory_id":  mem.ID,
		"index_size": m.index.Size(userID),
	})
	return &mem, nil
}

func (m *Manager) memoryContent(ctx context.Context, conversationID string, message *domain.Message) (string, error) {
	if message != nil {
		return message.Role + ": " + message.Content, nil
	}
	msgs, err := m.memories.RecentMessages(ctx, conversationID, m.opts.Window)
	if err != nil {
		return "", fmt.Errorf("load messages: %w", err)
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, msg.Role+": "+truncateRunes(msg.Content, domain.MemoryMessageMaxRunes))
	}
	return strings.Join(lines, "\n"), nil
}

// SearchSimilarConversations returns up to topK memories closest to query.
// topK <= 0 uses the configured search fan-out.
func (m *Manager) SearchSimilarConversations(ctx context.Context, userID, query string, topK int) ([]domain.SimilarConversation, error) {
	if topK <= 0 {
		topK = m.opts.SearchTopK
	}
	if err := m.ensureIndex(ctx, userID); err != nil {
		return nil, err
	}
	if m.index.Size(userID) == 0 {
		m.logger.Debug("memory index empty", map[string]interface{}{"user_id": userID})
		return []domain.SimilarConversation{}, nil
	}

	vec, err := m.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := m.index.Search(userID, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	idList := make([]string, len(hits))
	for i, h := range hits {
		idList[i] = h.ID
	}
	stored, err := m.memories.MemoriesByID(ctx, idList)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	out := make([]domain.SimilarConversation, 0, len(hits))
	for _, h := range hits {
		mem, ok := stored[h.ID]
		if !ok {
			m.logger.Warn("indexed memory missing from storage", map[string]interface{}{"memory_id": h.ID})
			continue
		}
		out = append(out, domain.SimilarConversation{
			MemoryID:       mem.ID,
			ConversationID: mem.ConversationID,
			Content:        mem.Content,
			Distance:       h.Distance,
			Similarity:     Similarity(h.Distance),
			CreatedAt:      mem.CreatedAt,
		})
	}
	return out, nil
}

// GetRelevantContext renders the hits at or above minSimilarity as a prompt
// block. It returns "" when nothing qualifies or retrieval fails.
func (m *Manager) GetRelevantContext(ctx context.Context, userID, query string, topK int, minSimilarity float64) string {
	if topK <= 0 {
		topK = domain.DefaultRAGTopK
	}
	results, err := m.SearchSimilarConversations(ctx, userID, query, topK)
	if err != nil {
		m.logger.Warn("retrieval failed", map[string]interface{}{"error": err.Error()})
		return ""
	}

	parts := []string{contextHeader}
	n := 0
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		n++
		parts = append(parts, fmt.Sprintf("\n--- 대화 %d (유사도: %.2f) ---\n%s\n",
			n, r.Similarity, truncateRunes(r.Content, domain.ContextSnippetMaxRunes)))
	}
	if n == 0 {
		return ""
	}
	out := strings.Join(parts, "\n")
	m.logger.Info("relevant context built", map[string]interface{}{"hits": n, "chars": len([]rune(out))})
	return out
}

// RebuildIndex replaces the user's partition with every stored memory and
// returns how many vectors were indexed.
func (m *Manager) RebuildIndex(ctx context.Context, userID string) (int, error) {
	mems, err := m.memories.MemoriesByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load memories: %w", err)
	}
	m.index.Reset(userID)
	n := 0
	for _, mem := range mems {
		if err := m.index.Add(userID, mem.ID, mem.Embedding); err != nil {
			m.logger.Warn("skipping memory during rebuild", map[string]interface{}{
				"memory_id": mem.ID,
				"error":     err.Error(),
			})
			continue
		}
		n++
	}
	m.logger.Info("memory index rebuilt", map[string]interface{}{"user_id": userID, "vectors": n})
	return n, nil
}

// ensureIndex rebuilds an empty partition from storage. Concurrent callers for
// the same user share one rebuild.
func (m *Manager) ensureIndex(ctx context.Context, userID string) error {
	if m.index.Size(userID) > 0 {
		return nil
	}
	_, err, _ := m.rebuilds.Do(userID, func() (interface{}, error) {
		if m.index.Size(userID) > 0 {
			return nil, nil
		}
		return m.RebuildIndex(ctx, userID)
	})
	return err
}

// Similarity maps a squared L2 distance onto (0,1].
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
