// Package attachment extracts text from chat-message attachments so the
// answering engine can use it as inline context. Unlike the ingestion
// path it degrades gracefully: unsupported or broken files produce a
// placeholder, never a hard failure.
package attachment

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/myckhel/course-pilot/internal/chunker"
	"github.com/myckhel/course-pilot/internal/models"
	"github.com/myckhel/course-pilot/internal/parser"
)

// Extraction is what attachment processing yields for one file
type Extraction struct {
	Content   string
	Chunks    []string
	Filename  string
	FileSize  int64
	Supported bool
	Err       string
}

// maxContextChunks bounds how many chunk previews an extraction keeps
const maxContextChunks = 10

type Processor struct {
	splitter *chunker.Splitter
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{splitter: chunker.New(chunkSize, chunkOverlap)}
}

// ExtractContent pulls text out of the attachment at path. The inline
// context is capped at AttachmentContextLimit characters with an explicit
// truncation marker; the cap applies only here, never to ingestion.
func (p *Processor) ExtractContent(path, originalFilename string) *Extraction {
	ex := &Extraction{Filename: originalFilename}
	if stat, err := os.Stat(path); err == nil {
		ex.FileSize = stat.Size()
	}

	if ex.FileSize > models.MaxAttachmentSize {
		ex.Content = fmt.Sprintf("File '%s' exceeds the attachment size limit and was not processed.", originalFilename)
		return ex
	}
	if !parser.IsSupported(originalFilename) {
		ex.Content = fmt.Sprintf("File '%s' uploaded but content extraction not supported for this file type.", originalFilename)
		return ex
	}

	segments, err := parser.Extract(path)
	if err != nil {
		log.Warn().Err(err).Str("file", originalFilename).Msg("attachment extraction failed")
		ex.Content = fmt.Sprintf("No content could be extracted from '%s'.", originalFilename)
		ex.Err = err.Error()
		return ex
	}
	ex.Supported = true

	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.Content
	}
	full := strings.Join(parts, "\n")

	chunks := p.splitter.Split(full)
	if len(chunks) > maxContextChunks {
		chunks = chunks[:maxContextChunks]
	}
	ex.Chunks = chunks

	// the limit counts characters; cut on a rune boundary so multibyte
	// text never truncates into invalid UTF-8
	if utf8.RuneCountInString(full) > models.AttachmentContextLimit {
		runes := []rune(full)
		full = string(runes[:models.AttachmentContextLimit]) + models.TruncationMarker
	}
	ex.Content = full
	return ex
}

// Context converts an extraction into the attachment context the
// answering engine augments its query with. Nil when there is nothing
// usable to pass along.
func (ex *Extraction) Context() *models.AttachmentContext {
	if ex == nil || ex.Content == "" {
		return nil
	}
	return &models.AttachmentContext{Filename: ex.Filename, Content: ex.Content}
}
