// Package chromemdb manages one persisted embedding index per topic on top
// of chromem-go. Each topic owns a directory under the storage root; the
// directory's presence is the index-existence signal.
package chromemdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/myckhel/course-pilot/internal/apperr"
	"github.com/myckhel/course-pilot/internal/embedding"
	"github.com/myckhel/course-pilot/internal/helper"
	"github.com/myckhel/course-pilot/internal/models"
)

const (
	collectionName = "documents"
	compress       = false
)

// Result is one retrieved chunk with its similarity to the query
type Result struct {
	Chunk      models.Chunk
	Similarity float32
}

// Manager owns the per-topic vector indexes. The embedding capability is
// injected at construction so tests can substitute it.
type Manager struct {
	root      string
	embedder  embedding.Embedder
	batchSize int
}

func NewManager(root string, embedder embedding.Embedder, batchSize int) (*Manager, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	if err := helper.CreateFolder(root); err != nil {
		return nil, fmt.Errorf("failed to create index root: %w", err)
	}
	return &Manager{root: root, embedder: embedder, batchSize: batchSize}, nil
}

func (m *Manager) topicDir(topicID string) string {
	return filepath.Join(m.root, topicID)
}

// Exists reports whether a persisted index directory is present for the topic
func (m *Manager) Exists(topicID string) bool {
	info, err := os.Stat(m.topicDir(topicID))
	return err == nil && info.IsDir()
}

func (m *Manager) openCollection(topicID string) (*chromem.Collection, error) {
	db, err := chromem.NewPersistentDB(m.topicDir(topicID), compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open index for topic %s: %w", topicID, err)
	}
	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return m.embedder.EmbedQuery(ctx, text)
	}
	c, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection for topic %s: %w", topicID, err)
	}
	return c, nil
}

// Create builds a new index for the topic from the given chunks. Embedding
// and persistence happen in bounded batches, flushed per batch; any failure
// removes the partially built index so no inconsistent index is left behind.
func (m *Manager) Create(ctx context.Context, topicID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return apperr.Newf(apperr.EmptyInput, "no chunks to index for topic %s", topicID)
	}

	collection, err := m.openCollection(topicID)
	if err != nil {
		m.cleanup(topicID)
		return err
	}
	if err := m.addBatched(ctx, collection, chunks); err != nil {
		m.cleanup(topicID)
		return err
	}

	log.Info().Str("topic", topicID).Int("chunks", len(chunks)).Msg("created topic index")
	return nil
}

// Update appends chunks to an existing index, or creates one if absent
func (m *Manager) Update(ctx context.Context, topicID string, chunks []models.Chunk) error {
	if !m.Exists(topicID) {
		return m.Create(ctx, topicID, chunks)
	}
	if len(chunks) == 0 {
		return apperr.Newf(apperr.EmptyInput, "no chunks to index for topic %s", topicID)
	}

	collection, err := m.openCollection(topicID)
	if err != nil {
		return err
	}
	if err := m.addBatched(ctx, collection, chunks); err != nil {
		return err
	}

	log.Info().Str("topic", topicID).Int("chunks", len(chunks)).Msg("updated topic index")
	return nil
}

// addBatched embeds and persists chunks batchSize at a time, so upstream
// payload limits are respected and completed batches survive a mid-stream
// failure.
func (m *Manager) addBatched(ctx context.Context, collection *chromem.Collection, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += m.batchSize {
		end := start + m.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		docs := make([]chromem.Document, 0, end-start)
		for _, chunk := range chunks[start:end] {
			vector, err := m.embedder.EmbedQuery(ctx, chunk.Content)
			if err != nil {
				return apperr.Wrap(apperr.EmbeddingFailure, "failed to embed chunk", err)
			}
			id, err := helper.GenerateUUID()
			if err != nil {
				return err
			}
			docs = append(docs, chromem.Document{
				ID:        id,
				Content:   chunk.Content,
				Embedding: vector,
				Metadata: map[string]string{
					"source":   chunk.Source,
					"page":     strconv.Itoa(chunk.PageNumber),
					"chunk_id": strconv.Itoa(chunk.ChunkID),
				},
			})
		}

		if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to add documents: %w", err)
		}
		log.Debug().Int("from", start).Int("to", end).Msg("flushed embedding batch")
	}
	return nil
}

// Search returns up to k chunks ranked by similarity to the query
func (m *Manager) Search(ctx context.Context, topicID, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = models.DefaultTopK
	}
	if !m.Exists(topicID) {
		return nil, apperr.Newf(apperr.IndexNotFound, "no index for topic %s", topicID)
	}

	collection, err := m.openCollection(topicID)
	if err != nil {
		return nil, err
	}

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	queryResults, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic %s: %w", topicID, err)
	}

	results := make([]Result, 0, len(queryResults))
	for _, r := range queryResults {
		page, _ := strconv.Atoi(r.Metadata["page"])
		chunkID, _ := strconv.Atoi(r.Metadata["chunk_id"])
		results = append(results, Result{
			Chunk: models.Chunk{
				Content:    r.Content,
				Source:     r.Metadata["source"],
				PageNumber: page,
				ChunkID:    chunkID,
			},
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

// DeleteBySource removes the embedded vectors whose chunks came from the
// given source path. Used by best-effort document deletion.
func (m *Manager) DeleteBySource(ctx context.Context, topicID, source string) error {
	if !m.Exists(topicID) {
		return nil
	}
	collection, err := m.openCollection(topicID)
	if err != nil {
		return err
	}
	return collection.Delete(ctx, map[string]string{"source": source}, nil)
}

// Delete removes the topic's persisted index; deleting an absent index is a
// no-op success.
func (m *Manager) Delete(topicID string) error {
	if err := os.RemoveAll(m.topicDir(topicID)); err != nil {
		return fmt.Errorf("failed to delete index for topic %s: %w", topicID, err)
	}
	return nil
}

// DocumentCount returns the number of embedded chunks for the topic; 0 when
// no index exists. It never fails: an unreadable index counts as empty.
func (m *Manager) DocumentCount(topicID string) int {
	if !m.Exists(topicID) {
		return 0
	}
	collection, err := m.openCollection(topicID)
	if err != nil {
		log.Warn().Err(err).Str("topic", topicID).Msg("could not open index for counting")
		return 0
	}
	return collection.Count()
}

// ListIndexedTopics enumerates topics with a persisted index
func (m *Manager) ListIndexedTopics() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan index root: %w", err)
	}
	var topics []string
	for _, entry := range entries {
		if entry.IsDir() {
			topics = append(topics, entry.Name())
		}
	}
	return topics, nil
}

func (m *Manager) cleanup(topicID string) {
	if err := os.RemoveAll(m.topicDir(topicID)); err != nil {
		log.Warn().Err(err).Str("topic", topicID).Msg("failed to clean up partial index")
	}
}
