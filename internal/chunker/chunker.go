// Package chunker splits extracted text into bounded, overlapping chunks
// for embedding. Splitting prefers natural boundaries: paragraph breaks,
// then line breaks, then sentence ends, then word gaps, with a hard
// character cut only when a window contains none of them.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/myckhel/course-pilot/internal/models"
)

var separators = []string{"\n\n", "\n", ". ", " "}

type Splitter struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts text into chunks of at most chunkSize characters, consecutive
// chunks sharing up to overlap characters of source text. Text at or under
// the limit comes back as a single chunk.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = backToRuneStart(text, s.breakPoint(text, start, end))
			if end <= start {
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(text) {
			break
		}

		// step back into the previous chunk to preserve context continuity
		next := backToRuneStart(text, end-s.overlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// backToRuneStart steps left to the nearest rune boundary so a hard cut
// never lands inside a multibyte character
func backToRuneStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// breakPoint finds the latest natural boundary inside (start, limit],
// trying separators in priority order. No boundary means a hard cut.
func (s *Splitter) breakPoint(text string, start, limit int) int {
	window := text[start:limit]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + idx + len(sep)
		}
	}
	return limit
}

// SplitChunks applies Split to each extracted segment, carrying the
// segment's provenance onto every produced chunk. Chunk IDs are 1-based
// and sequential across the whole document.
func (s *Splitter) SplitChunks(segments []models.Chunk) []models.Chunk {
	var out []models.Chunk
	id := 0
	for _, seg := range segments {
		for _, piece := range s.Split(seg.Content) {
			id++
			out = append(out, models.Chunk{
				Content:    piece,
				Source:     seg.Source,
				PageNumber: seg.PageNumber,
				ChunkID:    id,
			})
		}
	}
	return out
}
