package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myckhel/course-pilot/internal/models"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := New(100, 20)
	chunks := s.Split("a short piece of text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short piece of text", chunks[0])
}

func TestSplit_EmptyText(t *testing.T) {
	s := New(100, 20)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_SizeBound(t *testing.T) {
	s := New(100, 20)
	text := strings.Repeat("alpha beta gamma delta ", 50)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplit_ChunksComeFromSource(t *testing.T) {
	s := New(80, 10)
	text := strings.Repeat("one two three four five six seven eight nine ten ", 20)
	for _, chunk := range s.Split(text) {
		assert.Contains(t, text, chunk)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	s := New(100, 20)
	text := strings.Repeat("alpha beta gamma delta ", 50)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 2)

	for i := 0; i < len(chunks)-1; i++ {
		// the head of the next chunk is drawn from the tail of this one
		head := chunks[i+1]
		if len(head) > 10 {
			head = head[:10]
		}
		assert.Contains(t, chunks[i], head,
			"chunk %d should share overlap text with chunk %d", i, i+1)
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("x", 80)
	para2 := strings.Repeat("y", 80)
	s := New(100, 0)
	chunks := s.Split(para1 + "\n\n" + para2)
	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0])
	assert.Equal(t, para2, chunks[1])
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence follows and keeps going with more words. Third one."
	s := New(60, 0)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "First sentence here.", chunks[0])
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("q", 1200)
	s := New(500, 50)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 500)
	}
}

func TestSplit_HardCutKeepsRunesIntact(t *testing.T) {
	// no separators at all, so every cut is a hard cut; three-byte runes
	// put the 500-byte window edge inside a character
	text := strings.Repeat("€", 400)
	s := New(500, 50)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk must not split a rune")
		assert.LessOrEqual(t, len(chunk), 500)
	}
}

func TestNew_ClampsOverlap(t *testing.T) {
	s := New(100, 150)
	assert.Equal(t, 50, s.overlap)
}

func TestSplitChunks_CarriesMetadata(t *testing.T) {
	s := New(50, 10)
	segments := []models.Chunk{
		{Content: strings.Repeat("page one words ", 10), Source: "/tmp/doc.pdf", PageNumber: 1},
		{Content: "page two", Source: "/tmp/doc.pdf", PageNumber: 2},
	}
	chunks := s.SplitChunks(segments)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, "/tmp/doc.pdf", chunk.Source)
		assert.Equal(t, i+1, chunk.ChunkID)
	}
	assert.Equal(t, 2, chunks[len(chunks)-1].PageNumber)
	assert.Equal(t, 1, chunks[0].PageNumber)
}

func TestSplitChunks_Empty(t *testing.T) {
	s := New(50, 10)
	assert.Empty(t, s.SplitChunks(nil))
}
