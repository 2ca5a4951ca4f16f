package registry

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/myckhel/course-pilot/internal/config"
	"github.com/myckhel/course-pilot/internal/models"
)

type documentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID               string    `bun:"id,pk"`
	TopicID          string    `bun:"topic_id,notnull"`
	Filename         string    `bun:"filename,notnull"`
	OriginalFilename string    `bun:"original_filename,notnull"`
	FilePath         string    `bun:"file_path,notnull"`
	FileHash         string    `bun:"file_hash,notnull"`
	ContentHash      string    `bun:"content_hash,notnull"`
	FileSize         int64     `bun:"file_size,notnull"`
	ChunkCount       int       `bun:"chunk_count"`
	IsProcessed      bool      `bun:"is_processed"`
	UploadedBy       string    `bun:"uploaded_by"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	dsn := dbConfig.DSN + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(dbConfig.Password))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// BunRegistry persists document records in Postgres through bun
type BunRegistry struct {
	db *bun.DB
}

func NewBunRegistry(db *bun.DB) *BunRegistry {
	return &BunRegistry{db: db}
}

func (r *BunRegistry) Init(ctx context.Context) error {
	_, err := r.db.NewCreateTable().Model((*documentRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (r *BunRegistry) FindByFileHash(ctx context.Context, fileHash, topicID string) (*models.Document, error) {
	return r.findOne(ctx, "file_hash", fileHash, topicID)
}

func (r *BunRegistry) FindByContentHash(ctx context.Context, contentHash, topicID string) (*models.Document, error) {
	return r.findOne(ctx, "content_hash", contentHash, topicID)
}

func (r *BunRegistry) findOne(ctx context.Context, column, value, topicID string) (*models.Document, error) {
	var rec documentRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("? = ?", bun.Ident(column), value).
		Where("topic_id = ?", topicID).
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModel(&rec), nil
}

func (r *BunRegistry) Get(ctx context.Context, id string) (*models.Document, error) {
	var rec documentRecord
	err := r.db.NewSelect().Model(&rec).Where("id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModel(&rec), nil
}

func (r *BunRegistry) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	rec := toRecord(doc)
	_, err := r.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (r *BunRegistry) MarkProcessed(ctx context.Context, id string, chunkCount int) error {
	_, err := r.db.NewUpdate().
		Model((*documentRecord)(nil)).
		Set("is_processed = ?", true).
		Set("chunk_count = ?", chunkCount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *BunRegistry) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model((*documentRecord)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (r *BunRegistry) ListByTopic(ctx context.Context, topicID string) ([]models.Document, error) {
	var recs []documentRecord
	err := r.db.NewSelect().
		Model(&recs).
		Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(recs))
	for i := range recs {
		docs[i] = *toModel(&recs[i])
	}
	return docs, nil
}

func (r *BunRegistry) CountProcessed(ctx context.Context, topicID string) (int, error) {
	q := r.db.NewSelect().
		Model((*documentRecord)(nil)).
		Where("is_processed = ?", true)
	if topicID != "" {
		q = q.Where("topic_id = ?", topicID)
	}
	return q.Count(ctx)
}

func toModel(rec *documentRecord) *models.Document {
	return &models.Document{
		ID:               rec.ID,
		TopicID:          rec.TopicID,
		Filename:         rec.Filename,
		OriginalFilename: rec.OriginalFilename,
		FilePath:         rec.FilePath,
		FileHash:         rec.FileHash,
		ContentHash:      rec.ContentHash,
		FileSize:         rec.FileSize,
		ChunkCount:       rec.ChunkCount,
		IsProcessed:      rec.IsProcessed,
		UploadedBy:       rec.UploadedBy,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func toRecord(doc *models.Document) *documentRecord {
	return &documentRecord{
		ID:               doc.ID,
		TopicID:          doc.TopicID,
		Filename:         doc.Filename,
		OriginalFilename: doc.OriginalFilename,
		FilePath:         doc.FilePath,
		FileHash:         doc.FileHash,
		ContentHash:      doc.ContentHash,
		FileSize:         doc.FileSize,
		ChunkCount:       doc.ChunkCount,
		IsProcessed:      doc.IsProcessed,
		UploadedBy:       doc.UploadedBy,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}
