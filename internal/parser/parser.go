// Package parser converts uploaded files into plain-text segments with
// positional metadata. Each supported extension maps to an Extractor;
// dispatch is an explicit table lookup.
package parser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/myckhel/course-pilot/internal/apperr"
	"github.com/myckhel/course-pilot/internal/models"
)

// Extractor turns one file into text segments. PageNumber is 1-based where
// the format has pages (PDF), slides (PPTX) or sheets (XLSX/ODS); 0 where
// it has no positional concept.
type Extractor interface {
	Extract(path string) ([]models.Chunk, error)
}

type extractorFunc func(path string) ([]models.Chunk, error)

func (f extractorFunc) Extract(path string) ([]models.Chunk, error) { return f(path) }

// extractors maps lowercase extensions to handlers. Legacy OLE binaries
// (.doc, .xls, .ppt) have no Go extractor and are deliberately absent;
// callers decide whether that is a rejection or a placeholder.
var extractors = map[string]Extractor{
	".pdf":  extractorFunc(extractPDF),
	".txt":  extractorFunc(extractText),
	".md":   extractorFunc(extractMarkdown),
	".rtf":  extractorFunc(extractRTF),
	".docx": extractorFunc(extractDOCX),
	".pptx": extractorFunc(extractPPTX),
	".xlsx": extractorFunc(extractXLSX),
	".ods":  extractorFunc(extractODS),
	".csv":  extractorFunc(extractCSV),
}

// IsSupported reports whether the filename's extension has an extractor
func IsSupported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract dispatches on the file's extension and returns its text segments.
// Unregistered extensions fail with UnsupportedFormat; a handler error is an
// ExtractionFailure; a file with no extractable text is EmptyInput.
func Extract(path string) ([]models.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := extractors[ext]
	if !ok {
		return nil, apperr.Newf(apperr.UnsupportedFormat, "no extraction handler for %q", ext)
	}

	segments, err := extractor.Extract(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ExtractionFailure, "failed to extract "+filepath.Base(path), err)
	}

	var kept []models.Chunk
	for _, seg := range segments {
		if strings.TrimSpace(seg.Content) == "" {
			continue
		}
		seg.Source = path
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return nil, apperr.Newf(apperr.EmptyInput, "no extractable text in %s", filepath.Base(path))
	}
	return kept, nil
}

// FileMetadata describes an uploaded file without parsing it
type FileMetadata struct {
	Filename   string
	FileSize   int64
	ModifiedAt int64
}

func GetFileMetadata(path string) (*FileMetadata, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileMetadata{
		Filename:   filepath.Base(path),
		FileSize:   stat.Size(),
		ModifiedAt: stat.ModTime().Unix(),
	}, nil
}
