// Package docservice runs the ingestion pipeline: store the upload,
// extract and chunk its text, fingerprint it, skip duplicates, embed the
// chunks into the topic index and record the document in the registry.
package docservice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/myckhel/course-pilot/internal/apperr"
	"github.com/myckhel/course-pilot/internal/chromemdb"
	"github.com/myckhel/course-pilot/internal/chunker"
	"github.com/myckhel/course-pilot/internal/config"
	"github.com/myckhel/course-pilot/internal/fingerprint"
	"github.com/myckhel/course-pilot/internal/helper"
	"github.com/myckhel/course-pilot/internal/models"
	"github.com/myckhel/course-pilot/internal/parser"
	"github.com/myckhel/course-pilot/internal/registry"
)

type Service struct {
	registry    registry.Registry
	index       *chromemdb.Manager
	splitter    *chunker.Splitter
	uploadDir   string
	allowedExts map[string]bool
}

func NewService(reg registry.Registry, index *chromemdb.Manager, ragCfg *config.RAGConfig, uploadDir string) *Service {
	allowed := make(map[string]bool, len(ragCfg.IngestExtensions))
	for _, ext := range ragCfg.IngestExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Service{
		registry:    reg,
		index:       index,
		splitter:    chunker.New(ragCfg.ChunkSize, ragCfg.ChunkOverlap),
		uploadDir:   uploadDir,
		allowedExts: allowed,
	}
}

// ProcessUpload ingests one uploaded file into a topic. A file-hash or
// content-hash match against a processed document in the same topic is a
// duplicate: the existing record comes back and nothing is re-embedded.
// Hashes are never checked across topics.
func (s *Service) ProcessUpload(ctx context.Context, topicID, sourcePath, originalFilename, uploadedBy string) (*models.UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !s.allowedExts[ext] {
		return nil, apperr.Newf(apperr.InvalidDocument, "ingestion is not configured for %q files", ext)
	}

	storedPath, err := s.saveUpload(topicID, sourcePath, originalFilename)
	if err != nil {
		return nil, err
	}

	fileHash, err := fingerprint.HashFile(storedPath)
	if err != nil {
		s.discard(storedPath)
		return nil, err
	}

	// cheap check first: byte-identical re-upload, renamed or not
	if existing, err := s.findProcessed(ctx, s.registry.FindByFileHash, fileHash, topicID); err != nil {
		s.discard(storedPath)
		return nil, err
	} else if existing != nil {
		s.discard(storedPath)
		log.Info().Str("topic", topicID).Str("document", existing.ID).Msg("duplicate upload by file hash")
		return duplicateResult(existing), nil
	}

	segments, err := parser.Extract(storedPath)
	if err != nil {
		s.discard(storedPath)
		return nil, err
	}
	chunks := s.splitter.SplitChunks(segments)
	if len(chunks) == 0 {
		s.discard(storedPath)
		return nil, apperr.Newf(apperr.EmptyInput, "no chunks produced from %s", originalFilename)
	}

	// thorough check second: same extracted content in a different container
	contentHash := fingerprint.HashChunks(chunks)
	if existing, err := s.findProcessed(ctx, s.registry.FindByContentHash, contentHash, topicID); err != nil {
		s.discard(storedPath)
		return nil, err
	} else if existing != nil {
		s.discard(storedPath)
		log.Info().Str("topic", topicID).Str("document", existing.ID).Msg("duplicate upload by content hash")
		return duplicateResult(existing), nil
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		s.discard(storedPath)
		return nil, err
	}
	stat, err := os.Stat(storedPath)
	if err != nil {
		s.discard(storedPath)
		return nil, err
	}

	doc := &models.Document{
		ID:               id,
		TopicID:          topicID,
		Filename:         filepath.Base(storedPath),
		OriginalFilename: originalFilename,
		FilePath:         storedPath,
		FileHash:         fileHash,
		ContentHash:      contentHash,
		FileSize:         stat.Size(),
		UploadedBy:       uploadedBy,
	}
	if err := s.registry.Create(ctx, doc); err != nil {
		s.discard(storedPath)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	if err := s.index.Update(ctx, topicID, chunks); err != nil {
		// manual rollback: the record must not claim content the index lost
		if delErr := s.registry.Delete(ctx, doc.ID); delErr != nil {
			log.Warn().Err(delErr).Str("document", doc.ID).Msg("could not roll back document record")
		}
		s.discard(storedPath)
		return nil, err
	}

	if err := s.registry.MarkProcessed(ctx, doc.ID, len(chunks)); err != nil {
		return nil, fmt.Errorf("failed to mark document processed: %w", err)
	}
	doc.IsProcessed = true
	doc.ChunkCount = len(chunks)

	log.Info().Str("topic", topicID).Str("document", doc.ID).Int("chunks", len(chunks)).Msg("document ingested")
	return &models.UploadResult{
		Document:      doc,
		ChunksCreated: len(chunks),
		FilePath:      storedPath,
	}, nil
}

type lookupFunc func(ctx context.Context, hash, topicID string) (*models.Document, error)

// findProcessed filters lookups down to documents already fully embedded;
// an unprocessed match means an earlier ingestion was interrupted and a
// retry should proceed.
func (s *Service) findProcessed(ctx context.Context, lookup lookupFunc, hash, topicID string) (*models.Document, error) {
	doc, err := lookup(ctx, hash, topicID)
	if err != nil {
		return nil, err
	}
	if doc != nil && doc.IsProcessed {
		return doc, nil
	}
	return nil, nil
}

func duplicateResult(existing *models.Document) *models.UploadResult {
	return &models.UploadResult{
		Duplicate:     true,
		Existing:      existing,
		ChunksCreated: existing.ChunkCount,
		FilePath:      existing.FilePath,
	}
}

// saveUpload copies the file into the topic's upload folder under a
// UUID-suffixed name so re-uploads never overwrite each other.
func (s *Service) saveUpload(topicID, sourcePath, originalFilename string) (string, error) {
	topicFolder := filepath.Join(s.uploadDir, topicID)
	if err := helper.CreateFolder(topicFolder); err != nil {
		return "", fmt.Errorf("failed to create upload folder: %w", err)
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(originalFilename)
	name := strings.TrimSuffix(filepath.Base(originalFilename), ext)
	storedPath := filepath.Join(topicFolder, fmt.Sprintf("%s_%s%s", name, id, ext))

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(storedPath)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		s.discard(storedPath)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return storedPath, nil
}

func (s *Service) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not remove stored upload")
	}
}

// DeleteDocument removes a document's registry record and, best effort,
// its stored file and embedded vectors. Cleanup failures are reported in
// the outcome rather than raised, so the caller decides what to surface.
func (s *Service) DeleteDocument(ctx context.Context, id string) (*models.DeleteOutcome, error) {
	doc, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome := &models.DeleteOutcome{}
	if doc == nil {
		outcome.Warnings = append(outcome.Warnings, "document not found")
		return outcome, nil
	}

	if err := s.index.DeleteBySource(ctx, doc.TopicID, doc.FilePath); err != nil {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("vectors not removed: %v", err))
	} else {
		outcome.VectorsRemoved = true
	}

	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("file not removed: %v", err))
	} else {
		outcome.FileRemoved = true
	}

	if err := s.registry.Delete(ctx, id); err != nil {
		return outcome, fmt.Errorf("failed to delete document record: %w", err)
	}
	outcome.RecordDeleted = true
	return outcome, nil
}

// DeleteTopic drops the topic's index and its stored uploads
func (s *Service) DeleteTopic(ctx context.Context, topicID string) (*models.DeleteOutcome, error) {
	outcome := &models.DeleteOutcome{}

	if err := s.index.Delete(topicID); err != nil {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("index not removed: %v", err))
	} else {
		outcome.VectorsRemoved = true
	}

	docs, err := s.registry.ListByTopic(ctx, topicID)
	if err != nil {
		return outcome, err
	}
	outcome.FileRemoved = true
	for _, doc := range docs {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			outcome.FileRemoved = false
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("file not removed: %v", err))
		}
		if err := s.registry.Delete(ctx, doc.ID); err != nil {
			return outcome, fmt.Errorf("failed to delete document record: %w", err)
		}
	}
	outcome.RecordDeleted = true
	return outcome, nil
}
