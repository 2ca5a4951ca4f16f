// Package registry records per-document metadata: hashes, size, chunk
// count and processing status, scoped to the owning topic. The fingerprint
// checks in the ingestion pipeline run against it.
package registry

import (
	"context"

	"github.com/myckhel/course-pilot/internal/models"
)

// Registry is the document-metadata store the ingestion pipeline consults.
// Lookups return (nil, nil) when nothing matches; absence is not an error.
type Registry interface {
	FindByFileHash(ctx context.Context, fileHash, topicID string) (*models.Document, error)
	FindByContentHash(ctx context.Context, contentHash, topicID string) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	MarkProcessed(ctx context.Context, id string, chunkCount int) error
	Delete(ctx context.Context, id string) error
	ListByTopic(ctx context.Context, topicID string) ([]models.Document, error)
	CountProcessed(ctx context.Context, topicID string) (int, error)
}
