package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/infrastructure/vectorindex"
)

// stubEmbedder maps known texts to fixed vectors; anything else embeds to origin.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

type memoryRepo struct {
	mu       sync.Mutex
	messages map[string][]domain.Message
	memories []domain.ConversationMemory
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{messages: map[string][]domain.Message{}}
}

func (r *memoryRepo) SaveMessage(_ context.Context, m domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	return nil
}

func (r *memoryRepo) RecentMessages(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]domain.Message(nil), msgs...), nil
}

func (r *memoryRepo) SaveMemory(_ context.Context, m domain.ConversationMemory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memories = append(r.memories, m)
	return nil
}

func (r *memoryRepo) MemoriesByUser(_ context.Context, userID string) ([]domain.ConversationMemory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ConversationMemory
	for _, m := range r.memories {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) MemoriesByID(_ context.Context, memoryIDs []string) (map[string]domain.ConversationMemory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]domain.ConversationMemory{}
	for _, m := range r.memories {
		for _, id := range memoryIDs {
			if m.ID == id {
				out[id] = m
			}
		}
	}
	return out, nil
}

func newManager(t *testing.T, emb *stubEmbedder, repo *memoryRepo) (*Manager, *vectorindex.FlatIndex) {
	t.Helper()
	idx, err := vectorindex.NewFlatIndex(3, 8)
	require.NoError(t, err)
	return NewManager(emb, idx, repo, Options{}, nil), idx
}

func TestAddAndSearch(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"user: 파이썬 리스트 정렬": {1, 0, 0},
		"user: 고양이 사료 추천":  {0, 1, 0},
		"리스트 정렬 방법":        {1, 0, 0},
	}}
	repo := newMemoryRepo()
	m, idx := newManager(t, emb, repo)
	ctx := context.Background()

	for _, text := range []string{"파이썬 리스트 정렬", "고양이 사료 추천"} {
		mem, err := m.AddConversationToMemory(ctx, "u1", "c1", &domain.Message{ID: "m-" + text, Role: "user", Content: text})
		require.NoError(t, err)
		require.NotNil(t, mem)
		assert.Equal(t, "m-"+text, mem.MessageID)
		assert.Equal(t, "text-embedding-3-small", mem.Metadata["model"])
	}
	assert.Equal(t, 2, idx.Size("u1"))

	hits, err := m.SearchSimilarConversations(ctx, "u1", "리스트 정렬 방법", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "user: 파이썬 리스트 정렬", hits[0].Content)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.InDelta(t, 1.0/3.0, hits[1].Similarity, 1e-9)

	none, err := m.SearchSimilarConversations(ctx, "someone-else", "리스트 정렬 방법", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetRelevantContext(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"user: " + strings.Repeat("가", 600): {1, 0, 0},
		"user: 관련 없음":                      {0, 1, 0},
		"긴 질문":                             {1, 0, 0},
		"다른 질문":                            {0, 0, 1},
	}}
	m, _ := newManager(t, emb, newMemoryRepo())
	ctx := context.Background()
	_, err := m.AddConversationToMemory(ctx, "u1", "c1", &domain.Message{Role: "user", Content: strings.Repeat("가", 600)})
	require.NoError(t, err)
	_, err = m.AddConversationToMemory(ctx, "u1", "c1", &domain.Message{Role: "user", Content: "관련 없음"})
	require.NoError(t, err)

	got := m.GetRelevantContext(ctx, "u1", "긴 질문", 3, 0.7)
	want := "[관련 대화 기록]\n\n--- 대화 1 (유사도: 1.00) ---\n" + "user: " + strings.Repeat("가", 494) + "\n"
	assert.Equal(t, want, got)

	// both memories sit at squared distance 2, similarity 1/3
	assert.Equal(t, "", m.GetRelevantContext(ctx, "u1", "다른 질문", 3, 0.7))
}

func TestGetRelevantContext_FailuresYieldEmpty(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"user: hi": {1, 0, 0}}}
	m, _ := newManager(t, emb, newMemoryRepo())
	_, err := m.AddConversationToMemory(context.Background(), "u1", "c1", &domain.Message{Role: "user", Content: "hi"})
	require.NoError(t, err)

	emb.err = errors.New("quota")
	assert.Equal(t, "", m.GetRelevantContext(context.Background(), "u1", "hi", 3, 0.7))

	disabled := NewManager(nil, nil, newMemoryRepo(), Options{}, nil)
	_, err = disabled.CreateEmbedding(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestAddConversationWindow(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		content := string(rune('a' + i))
		if i == 11 {
			content = strings.Repeat("z", 250)
		}
		require.NoError(t, repo.SaveMessage(ctx, domain.Message{ConversationID: "c1", Role: role, Content: content}))
	}
	m, _ := newManager(t, &stubEmbedder{}, repo)

	mem, err := m.AddConversationToMemory(ctx, "u1", "c1", nil)
	require.NoError(t, err)
	lines := strings.Split(mem.Content, "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "user: c", lines[0])
	assert.Equal(t, "assistant: "+strings.Repeat("z", 200), lines[9])

	empty, err := m.AddConversationToMemory(ctx, "u1", "no-such-conversation", nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestLazyRebuildAfterEviction(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"user: hi": {1, 0, 0}, "hi": {1, 0, 0}}}
	repo := newMemoryRepo()
	m, idx := newManager(t, emb, repo)
	ctx := context.Background()
	_, err := m.AddConversationToMemory(ctx, "u1", "c1", &domain.Message{Role: "user", Content: "hi"})
	require.NoError(t, err)

	idx.Reset("u1")
	require.Equal(t, 0, idx.Size("u1"))

	hits, err := m.SearchSimilarConversations(ctx, "u1", "hi", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, idx.Size("u1"))

	n, err := m.RebuildIndex(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, idx.Size("u1"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.Equal(t, 0.5, Similarity(1))
}
