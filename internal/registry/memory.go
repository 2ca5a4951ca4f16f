package registry

import (
	"context"
	"sync"
	"time"

	"github.com/myckhel/course-pilot/internal/models"
)

// MemoryRegistry keeps document records in memory. Used when no database
// DSN is configured and as the registry double in tests.
type MemoryRegistry struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{docs: make(map[string]models.Document)}
}

func (r *MemoryRegistry) FindByFileHash(ctx context.Context, fileHash, topicID string) (*models.Document, error) {
	return r.find(func(d models.Document) bool {
		return d.FileHash == fileHash && d.TopicID == topicID
	})
}

func (r *MemoryRegistry) FindByContentHash(ctx context.Context, contentHash, topicID string) (*models.Document, error) {
	return r.find(func(d models.Document) bool {
		return d.ContentHash == contentHash && d.TopicID == topicID
	})
}

func (r *MemoryRegistry) find(match func(models.Document) bool) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.docs {
		if match(d) {
			doc := d
			return &doc, nil
		}
	}
	return nil, nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.docs[id]; ok {
		doc := d
		return &doc, nil
	}
	return nil, nil
}

func (r *MemoryRegistry) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	r.docs[doc.ID] = *doc
	return nil
}

func (r *MemoryRegistry) MarkProcessed(ctx context.Context, id string, chunkCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[id]; ok {
		d.IsProcessed = true
		d.ChunkCount = chunkCount
		d.UpdatedAt = time.Now()
		r.docs[id] = d
	}
	return nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *MemoryRegistry) ListByTopic(ctx context.Context, topicID string) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var docs []models.Document
	for _, d := range r.docs {
		if d.TopicID == topicID {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (r *MemoryRegistry) CountProcessed(ctx context.Context, topicID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, d := range r.docs {
		if d.IsProcessed && (topicID == "" || d.TopicID == topicID) {
			count++
		}
	}
	return count, nil
}
