package models

import "time"

// Chunk represents a span of extracted text with its provenance
type Chunk struct {
	Content    string
	Source     string
	PageNumber int // 1-based; 0 means the format carries no page concept
	ChunkID    int
}

// Document is one uploaded file bound to a topic, as recorded in the registry
type Document struct {
	ID               string
	TopicID          string
	Filename         string
	OriginalFilename string
	FilePath         string
	FileHash         string
	ContentHash      string
	FileSize         int64
	ChunkCount       int
	IsProcessed      bool
	UploadedBy       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UploadResult is the outcome of one ingestion attempt. A duplicate is a
// successful outcome, not an error: Existing points at the document that
// already covers this content within the topic.
type UploadResult struct {
	Duplicate     bool
	Document      *Document
	Existing      *Document
	ChunksCreated int
	FilePath      string
}

// AttachmentContext is extracted attachment text handed to the answering
// engine alongside a question
type AttachmentContext struct {
	Filename string
	Content  string
}

// ChatMessage is one turn of an external chat session, referenced when
// building conversational context
type ChatMessage struct {
	Sender string
	Text   string
}

// Answer is what the answering engine produces for one question
type Answer struct {
	Question string
	Content  string
	Sources  []string
}

// DeleteOutcome reports best-effort cleanup: the registry record is gone when
// RecordDeleted, while file and vector removal may have partially failed.
type DeleteOutcome struct {
	RecordDeleted  bool
	FileRemoved    bool
	VectorsRemoved bool
	Warnings       []string
}
