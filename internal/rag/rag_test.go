package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myckhel/course-pilot/internal/apperr"
	"github.com/myckhel/course-pilot/internal/chromemdb"
	"github.com/myckhel/course-pilot/internal/models"
)

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

// fakeCompleter records the prompt it was given and answers with a canned
// response
type fakeCompleter struct {
	lastPrompt string
	response   string
	err        error
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.lastPrompt = prompt
	return c.response, c.err
}

func newTestEngine(t *testing.T, completer *fakeCompleter) (*Engine, *chromemdb.Manager) {
	t.Helper()
	index, err := chromemdb.NewManager(t.TempDir(), fakeEmbedder{}, 10)
	require.NoError(t, err)
	return NewEngine(index, completer, 4), index
}

func indexTopic(t *testing.T, index *chromemdb.Manager, topicID string) {
	t.Helper()
	chunks := []models.Chunk{
		{Content: "Photosynthesis converts light energy into chemical energy", Source: "/tmp/lecture1.pdf", PageNumber: 3, ChunkID: 1},
		{Content: "Cellular respiration breaks glucose down to release energy", Source: "/tmp/lecture1.pdf", PageNumber: 7, ChunkID: 2},
		{Content: "Notes about enzymes and reaction rates", Source: "/tmp/notes.txt", ChunkID: 3},
	}
	require.NoError(t, index.Create(context.Background(), topicID, chunks))
}

func TestValidateQuestion_Boundaries(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeCompleter{})

	assert.Error(t, engine.ValidateQuestion(""))
	assert.Error(t, engine.ValidateQuestion("   \n "))
	assert.Error(t, engine.ValidateQuestion("ab"))
	assert.NoError(t, engine.ValidateQuestion("abc"))
	assert.NoError(t, engine.ValidateQuestion(strings.Repeat("q", 1000)))
	assert.Error(t, engine.ValidateQuestion(strings.Repeat("q", 1001)))

	err := engine.ValidateQuestion("ab")
	assert.Equal(t, apperr.InvalidQuestion, apperr.KindOf(err))
}

func TestValidateQuestion_CountsCharactersNotBytes(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeCompleter{})

	// 600 two-byte characters exceed 1000 bytes but not 1000 characters
	assert.NoError(t, engine.ValidateQuestion(strings.Repeat("é", 600)))
	assert.NoError(t, engine.ValidateQuestion(strings.Repeat("é", 1000)))
	assert.Error(t, engine.ValidateQuestion(strings.Repeat("é", 1001)))

	assert.Error(t, engine.ValidateQuestion("ét"))
	assert.NoError(t, engine.ValidateQuestion("été"))
}

func TestAnswer_TopicNotIndexed(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeCompleter{response: "unused"})

	_, err := engine.Answer(context.Background(), "EmptyTopic", "what is X?", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.IndexNotFound, apperr.KindOf(err))
}

func TestAnswer_Success(t *testing.T) {
	completer := &fakeCompleter{response: "Photosynthesis converts light into chemical energy."}
	engine, index := newTestEngine(t, completer)
	indexTopic(t, index, "biology")

	answer, err := engine.Answer(context.Background(), "biology", "What does photosynthesis do?", nil)
	require.NoError(t, err)

	assert.Equal(t, "What does photosynthesis do?", answer.Question)
	assert.Equal(t, "Photosynthesis converts light into chemical energy.", answer.Content)
	require.NotEmpty(t, answer.Sources)
	assert.Contains(t, answer.Sources[0], "Reference 1")

	// every citation carries a page or a filename
	for _, source := range answer.Sources {
		hasLocation := strings.Contains(source, "(Page ") || strings.Contains(source, "(Source: ")
		assert.True(t, hasLocation, source)
	}
}

func TestAnswer_PromptContainsRefusalInstruction(t *testing.T) {
	completer := &fakeCompleter{response: "answer"}
	engine, index := newTestEngine(t, completer)
	indexTopic(t, index, "biology")

	_, err := engine.Answer(context.Background(), "biology", "What does photosynthesis do?", nil)
	require.NoError(t, err)

	assert.Contains(t, completer.lastPrompt, "just say that you don't know")
	assert.Contains(t, completer.lastPrompt, "don't try to make up an answer")
	assert.Contains(t, completer.lastPrompt, "course materials")
	assert.Contains(t, completer.lastPrompt, "What does photosynthesis do?")
	// retrieved chunk text is supplied as grounding context
	assert.Contains(t, completer.lastPrompt, "Photosynthesis converts light energy")
}

func TestAnswer_AttachmentAugmentsQuery(t *testing.T) {
	completer := &fakeCompleter{response: "answer"}
	engine, index := newTestEngine(t, completer)
	indexTopic(t, index, "biology")

	att := &models.AttachmentContext{
		Filename: "homework.txt",
		Content:  "Question 3 asks about the light-dependent reactions.",
	}
	_, err := engine.Answer(context.Background(), "biology", "Can you help with question 3?", att)
	require.NoError(t, err)

	assert.Contains(t, completer.lastPrompt, "homework.txt")
	assert.Contains(t, completer.lastPrompt, "light-dependent reactions")
	assert.Contains(t, completer.lastPrompt, "prioritize information from the file content")
}

func TestAnswer_EmptyCompletionFallback(t *testing.T) {
	completer := &fakeCompleter{response: "   "}
	engine, index := newTestEngine(t, completer)
	indexTopic(t, index, "biology")

	answer, err := engine.Answer(context.Background(), "biology", "What does photosynthesis do?", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EmptyAnswerFallback, answer.Content)
}

func TestAnswer_CompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream quota")}
	engine, index := newTestEngine(t, completer)
	indexTopic(t, index, "biology")

	_, err := engine.Answer(context.Background(), "biology", "What does photosynthesis do?", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CompletionFailure, apperr.KindOf(err))
}

func TestFormatSources(t *testing.T) {
	long := strings.Repeat("a", 150)
	results := []chromemdb.Result{
		{Chunk: models.Chunk{Content: "short text", PageNumber: 3, Source: "/tmp/lecture.pdf"}},
		{Chunk: models.Chunk{Content: long, Source: "/tmp/uploads/notes.txt"}},
	}

	sources := FormatSources(results)
	require.Len(t, sources, 2)

	assert.Equal(t, "Reference 1 (Page 3): short text", sources[0])
	assert.True(t, strings.HasPrefix(sources[1], "Reference 2 (Source: notes.txt): "))
	assert.True(t, strings.HasSuffix(sources[1], "..."))
	assert.Contains(t, sources[1], long[:100])
	assert.NotContains(t, sources[1], long[:101])
}

func TestFormatSources_MultibytePreview(t *testing.T) {
	content := strings.Repeat("a", 99) + "éléphant"
	results := []chromemdb.Result{
		{Chunk: models.Chunk{Content: content, PageNumber: 1}},
	}

	sources := FormatSources(results)
	require.Len(t, sources, 1)

	// the preview is cut at 100 characters, never mid-rune
	assert.True(t, utf8.ValidString(sources[0]), sources[0])
	assert.True(t, strings.HasSuffix(sources[0], "é..."))
}

func TestBuildConversationContext(t *testing.T) {
	assert.Equal(t, "current", BuildConversationContext(nil, "current"))

	history := []models.ChatMessage{
		{Sender: "user", Text: "q1"},
		{Sender: "assistant", Text: "a1"},
	}
	got := BuildConversationContext(history, "q2")
	assert.Contains(t, got, "Previous question: q1")
	assert.Contains(t, got, "Previous answer: a1")
	assert.Contains(t, got, "Current question: q2")

	// only the most recent exchanges are kept
	var long []models.ChatMessage
	for i := 0; i < 10; i++ {
		long = append(long, models.ChatMessage{Sender: "user", Text: "old"})
	}
	long = append(long, models.ChatMessage{Sender: "user", Text: "recent"})
	got = BuildConversationContext(long, "now")
	assert.Equal(t, 7, len(strings.Split(got, "\n")))
}
