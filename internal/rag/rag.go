// Package rag answers questions against a topic's index: retrieve the
// most relevant chunks, assemble a grounded prompt, call the completion
// capability and cite the chunks that supported the answer.
package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/myckhel/course-pilot/internal/apperr"
	"github.com/myckhel/course-pilot/internal/chromemdb"
	"github.com/myckhel/course-pilot/internal/llmservice"
	"github.com/myckhel/course-pilot/internal/models"
)

const sourcePreviewLen = 100

type Engine struct {
	index     *chromemdb.Manager
	completer llmservice.Completer
	topK      int
}

// NewEngine wires the engine to its index and completion capability.
// Both are injected so tests can substitute them.
func NewEngine(index *chromemdb.Manager, completer llmservice.Completer, topK int) *Engine {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &Engine{index: index, completer: completer, topK: topK}
}

// ValidateQuestion rejects blank questions, questions shorter than three
// characters and questions longer than a thousand. Limits count characters,
// not bytes, so non-ASCII questions are not penalized.
func (e *Engine) ValidateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return apperr.New(apperr.InvalidQuestion, "question is empty")
	}
	if utf8.RuneCountInString(trimmed) < models.MinQuestionLen {
		return apperr.Newf(apperr.InvalidQuestion, "question is too short (minimum %d characters)", models.MinQuestionLen)
	}
	if utf8.RuneCountInString(question) > models.MaxQuestionLen {
		return apperr.Newf(apperr.InvalidQuestion, "question is too long (maximum %d characters)", models.MaxQuestionLen)
	}
	return nil
}

// Answer runs the retrieval-augmented answering flow for one question.
// attachment may be nil; when present the query instructs the model to
// prioritize the attached file while staying grounded in topic chunks.
func (e *Engine) Answer(ctx context.Context, topicID, question string, attachment *models.AttachmentContext) (*models.Answer, error) {
	if err := e.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if !e.index.Exists(topicID) {
		return nil, apperr.Newf(apperr.IndexNotFound, "topic %s has no indexed documents", topicID)
	}

	query := question
	if attachment != nil && attachment.Content != "" {
		query = strings.TrimSpace(fmt.Sprintf(models.AttachmentQueryTemplate, attachment.Filename, attachment.Content, question))
	}

	results, err := e.index.Search(ctx, topicID, query, e.topK)
	if err != nil {
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.AnsweringFailure, "retrieval failed", err)
	}

	prompt := BuildPrompt(results, query)
	response, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, apperr.Wrap(apperr.CompletionFailure, "completion call failed", err)
	}

	answer := strings.TrimSpace(response)
	if answer == "" {
		log.Warn().Str("topic", topicID).Msg("completion returned no text")
		answer = models.EmptyAnswerFallback
	}

	return &models.Answer{
		Question: question,
		Content:  answer,
		Sources:  FormatSources(results),
	}, nil
}

// BuildPrompt assembles the grounded instruction prompt: the retrieved
// chunks as context plus the refusal instruction that keeps the model from
// fabricating beyond them.
func BuildPrompt(results []chromemdb.Result, query string) string {
	var contextText strings.Builder
	for _, r := range results {
		contextText.WriteString(r.Chunk.Content)
		contextText.WriteString("\n\n")
	}
	return fmt.Sprintf(models.QAPromptTemplate, strings.TrimSpace(contextText.String()), query)
}

// FormatSources renders one human-readable citation per retrieved chunk:
// a 1-based reference index, the page number or source filename, and a
// bounded content preview.
func FormatSources(results []chromemdb.Result) []string {
	sources := make([]string, 0, len(results))
	for i, r := range results {
		location := ""
		if r.Chunk.PageNumber > 0 {
			location = fmt.Sprintf(" (Page %d)", r.Chunk.PageNumber)
		} else if r.Chunk.Source != "" {
			location = fmt.Sprintf(" (Source: %s)", filepath.Base(r.Chunk.Source))
		}

		preview := truncateRunes(r.Chunk.Content, sourcePreviewLen)
		sources = append(sources, fmt.Sprintf("Reference %d%s: %s", i+1, location, preview))
	}
	return sources
}

// truncateRunes caps text at limit characters, cutting on a rune boundary
// so a multibyte character is never split.
func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

// BuildConversationContext folds the recent exchange history into the
// current question so follow-ups carry their antecedents.
func BuildConversationContext(previous []models.ChatMessage, question string) string {
	if len(previous) == 0 {
		return question
	}
	recent := previous
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}

	var parts []string
	for _, msg := range recent {
		switch msg.Sender {
		case "user":
			parts = append(parts, "Previous question: "+msg.Text)
		case "assistant":
			parts = append(parts, "Previous answer: "+msg.Text)
		}
	}
	parts = append(parts, "Current question: "+question)
	return strings.Join(parts, "\n")
}
