package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myckhel/course-pilot/internal/apperr"
	"github.com/myckhel/course-pilot/internal/models"
)

// fakeEmbedder maps token counts into a fixed-size vector, so texts that
// share words come out similar without calling a model
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 64)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%64]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		norm = 1
	}
	scale := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= scale
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("quota exceeded")
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), fakeEmbedder{}, 3)
	require.NoError(t, err)
	return m
}

func testChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			Content:    fmt.Sprintf("chunk number %d about topic material", i),
			Source:     "/tmp/lecture.pdf",
			PageNumber: i + 1,
			ChunkID:    i + 1,
		}
	}
	return chunks
}

func TestCreate_ThenExists(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	assert.False(t, m.Exists("biology"))
	require.NoError(t, m.Create(ctx, "biology", testChunks(5)))
	assert.True(t, m.Exists("biology"))
	assert.Equal(t, 5, m.DocumentCount("biology"))
}

func TestCreate_EmptyInput(t *testing.T) {
	m := newTestManager(t)
	err := m.Create(context.Background(), "biology", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.EmptyInput, apperr.KindOf(err))
	assert.False(t, m.Exists("biology"))
}

func TestCreate_FailureRemovesPartialIndex(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root, failingEmbedder{}, 3)
	require.NoError(t, err)

	err = m.Create(context.Background(), "biology", testChunks(5))
	require.Error(t, err)
	assert.Equal(t, apperr.EmbeddingFailure, apperr.KindOf(err))

	assert.False(t, m.Exists("biology"))
	_, statErr := os.Stat(filepath.Join(root, "biology"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpdate_CreatesWhenAbsent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Update(ctx, "history", testChunks(2)))
	assert.True(t, m.Exists("history"))
	assert.Equal(t, 2, m.DocumentCount("history"))
}

func TestUpdate_AppendsToExisting(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "history", testChunks(4)))
	require.NoError(t, m.Update(ctx, "history", []models.Chunk{
		{Content: "an appended chunk", Source: "/tmp/extra.pdf", PageNumber: 1, ChunkID: 1},
	}))
	assert.Equal(t, 5, m.DocumentCount("history"))
}

func TestSearch_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	chunks := testChunks(6)
	chunks[3].Content = "Photosynthesis converts light energy into chemical energy"
	require.NoError(t, m.Create(ctx, "biology", chunks))

	results, err := m.Search(ctx, "biology", "photosynthesis light energy", 4)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 4)

	var found bool
	for _, r := range results {
		if strings.Contains(r.Chunk.Content, "Photosynthesis converts light energy") {
			found = true
			assert.Equal(t, 4, r.Chunk.PageNumber)
			assert.Equal(t, "/tmp/lecture.pdf", r.Chunk.Source)
		}
	}
	assert.True(t, found, "the matching chunk should be in the top-k results")
}

func TestSearch_IndexNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Search(context.Background(), "missing", "anything", 4)
	require.Error(t, err)
	assert.Equal(t, apperr.IndexNotFound, apperr.KindOf(err))
}

func TestSearch_ClampsKToCollectionSize(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "small", testChunks(2)))
	results, err := m.Search(ctx, "small", "chunk material", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDelete_Idempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "biology", testChunks(2)))
	require.NoError(t, m.Delete("biology"))
	assert.False(t, m.Exists("biology"))

	// deleting an absent index is a no-op success
	require.NoError(t, m.Delete("biology"))
	require.NoError(t, m.Delete("never-existed"))
}

func TestDeleteBySource(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	chunks := testChunks(3)
	other := models.Chunk{Content: "from another file", Source: "/tmp/other.pdf", ChunkID: 1}
	require.NoError(t, m.Create(ctx, "biology", append(chunks, other)))
	require.Equal(t, 4, m.DocumentCount("biology"))

	require.NoError(t, m.DeleteBySource(ctx, "biology", "/tmp/lecture.pdf"))
	assert.Equal(t, 1, m.DocumentCount("biology"))

	// no-op for topics without an index
	require.NoError(t, m.DeleteBySource(ctx, "missing", "/tmp/lecture.pdf"))
}

func TestDocumentCount_AbsentIsZero(t *testing.T) {
	m := newTestManager(t)
	assert.Zero(t, m.DocumentCount("missing"))
}

func TestListIndexedTopics(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	topics, err := m.ListIndexedTopics()
	require.NoError(t, err)
	assert.Empty(t, topics)

	require.NoError(t, m.Create(ctx, "biology", testChunks(1)))
	require.NoError(t, m.Create(ctx, "history", testChunks(1)))

	topics, err = m.ListIndexedTopics()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"biology", "history"}, topics)
}

func TestCrossTopicIndependence(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	chunks := testChunks(3)
	require.NoError(t, m.Create(ctx, "topic-a", chunks))
	require.NoError(t, m.Create(ctx, "topic-b", chunks))

	require.NoError(t, m.Delete("topic-a"))
	assert.False(t, m.Exists("topic-a"))
	assert.True(t, m.Exists("topic-b"))
	assert.Equal(t, 3, m.DocumentCount("topic-b"))
}
