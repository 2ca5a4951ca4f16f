package models

const (
	// DefaultTopK is how many chunks retrieval feeds the completion call
	DefaultTopK = 4

	// AttachmentContextLimit caps extracted attachment text used as inline
	// chat context; the ingestion path is never truncated.
	AttachmentContextLimit = 4000

	// TruncationMarker is appended when attachment context was cut off
	TruncationMarker = "\n... [Content truncated]"

	// MaxAttachmentSize is the per-file ceiling for chat attachments
	MaxAttachmentSize = 5 * 1024 * 1024

	// CSVSampleRows bounds how many rows a CSV summary includes
	CSVSampleRows = 10

	MinQuestionLen = 3
	MaxQuestionLen = 1000
)

var (
	QAPromptTemplate = `Use the following pieces of context to answer the question at the end.
If you don't know the answer based on the context provided, just say that you don't know, don't try to make up an answer.

Context:
%s

Question: %s

Answer: Please provide a helpful and accurate answer based on the context provided above. If you reference specific information, mention that it comes from the course materials.`

	AttachmentQueryTemplate = `The user has uploaded a file named '%s' and is asking a question about it.

File Content:
%s

User's Question: %s

Please answer the user's question based on both the uploaded file content and any relevant information from the course materials. If the question is specifically about the uploaded file, prioritize information from the file content.`

	// EmptyAnswerFallback is returned when the completion call yields nothing
	EmptyAnswerFallback = "I'm sorry, I couldn't generate an answer."

	// AnsweringErrorMessage is what callers persist as the assistant turn
	// when the engine fails; the user's question is still recorded.
	AnsweringErrorMessage = "I encountered an error processing your question. Please try again."
)
