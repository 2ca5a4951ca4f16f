package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/myckhel/course-pilot/internal/attachment"
	"github.com/myckhel/course-pilot/internal/chromemdb"
	"github.com/myckhel/course-pilot/internal/config"
	"github.com/myckhel/course-pilot/internal/docservice"
	"github.com/myckhel/course-pilot/internal/embedding"
	"github.com/myckhel/course-pilot/internal/helper"
	"github.com/myckhel/course-pilot/internal/llmservice"
	"github.com/myckhel/course-pilot/internal/models"
	"github.com/myckhel/course-pilot/internal/rag"
	"github.com/myckhel/course-pilot/internal/registry"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	topic := flag.String("topic", "", "Topic ID to operate on")
	filePath := flag.String("file", "", "Path to a document to ingest into the topic")
	query := flag.String("query", "", "Question to answer against the topic")
	attachmentPath := flag.String("attachment", "", "Optional attachment to use as question context")
	user := flag.String("user", "cli", "Uploader ID recorded on ingested documents")
	listTopics := flag.Bool("list", false, "List topics with a persisted index")
	deleteTopic := flag.Bool("delete-topic", false, "Delete the topic's index and documents")
	stats := flag.Bool("stats", false, "Print document counts")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()
	app, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error wiring services")
	}

	switch {
	case *listTopics:
		app.listTopics()
	case *stats:
		app.printStats(ctx, *topic)
	case *deleteTopic && *topic != "":
		app.deleteTopic(ctx, *topic)
	case *filePath != "" && *topic != "":
		app.upload(ctx, *topic, *filePath, *user)
	case *query != "" && *topic != "":
		app.ask(ctx, *topic, *query, *attachmentPath)
	default:
		log.Fatal().Msg("Provide -topic with -file (ingest) or -query (ask), or use -list / -stats / -delete-topic")
	}
}

type app struct {
	cfg         *config.Config
	registry    registry.Registry
	index       *chromemdb.Manager
	documents   *docservice.Service
	attachments *attachment.Processor
	engine      *rag.Engine
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedder: %w", err)
	}

	index, err := chromemdb.NewManager(cfg.Storage.IndexDir, embedder, cfg.RAG.EmbedBatchSize)
	if err != nil {
		return nil, err
	}

	reg, err := newRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:         cfg,
		registry:    reg,
		index:       index,
		documents:   docservice.NewService(reg, index, &cfg.RAG, cfg.Storage.UploadDir),
		attachments: attachment.NewProcessor(cfg.RAG.AttachmentChunkSize, cfg.RAG.AttachmentChunkOverlap),
		engine:      rag.NewEngine(index, llmservice.NewClient(&cfg.ChatLLM), cfg.RAG.TopK),
	}, nil
}

// newEmbedder picks ollama when no API key is configured, otherwise an
// OpenAI-compatible endpoint.
func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	if cfg.EmbedLLM.Key == "" {
		return embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	}
	return embedding.NewEmbedder(&cfg.EmbedLLM)
}

func newRegistry(ctx context.Context, cfg *config.Config) (registry.Registry, error) {
	if cfg.Database.DSN == "" {
		log.Warn().Msg("No database DSN configured, using in-memory document registry")
		return registry.NewMemoryRegistry(), nil
	}
	sqldb, err := registry.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	reg := registry.NewBunRegistry(registry.NewDB(sqldb, cfg.Database.Debug))
	if err := reg.Init(ctx); err != nil {
		return nil, fmt.Errorf("error initializing registry schema: %w", err)
	}
	return reg, nil
}

func (a *app) upload(ctx context.Context, topicID, filePath, user string) {
	result, err := a.documents.ProcessUpload(ctx, topicID, filePath, filepath.Base(filePath), user)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	if result.Duplicate {
		log.Info().Str("document", result.Existing.ID).Msg("Duplicate upload, already processed in this topic")
	} else {
		log.Info().Str("document", result.Document.ID).Int("chunks", result.ChunksCreated).Msg("Document ingested")
	}
	helper.PrettyPrint(result)
}

func (a *app) ask(ctx context.Context, topicID, query, attachmentPath string) {
	var attCtx *models.AttachmentContext
	if attachmentPath != "" {
		attCtx = a.attachments.ExtractContent(attachmentPath, filepath.Base(attachmentPath)).Context()
	}

	answer, err := a.engine.Answer(ctx, topicID, query, attCtx)
	if err != nil {
		// the question still surfaces with a stored fallback in the chat
		// flow; the CLI just prints the same fallback
		log.Error().Err(err).Msg("Error answering question")
		fmt.Println(models.AnsweringErrorMessage)
		return
	}

	fmt.Printf("Question: %s\n\n", answer.Question)
	fmt.Printf("Answer: %s\n\n", answer.Content)
	fmt.Println("Sources:")
	for _, source := range answer.Sources {
		fmt.Printf("  %s\n", source)
	}
}

func (a *app) listTopics() {
	topics, err := a.index.ListIndexedTopics()
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing topics")
	}
	for _, topicID := range topics {
		fmt.Printf("%s\t%d chunks\n", topicID, a.index.DocumentCount(topicID))
	}
}

func (a *app) deleteTopic(ctx context.Context, topicID string) {
	outcome, err := a.documents.DeleteTopic(ctx, topicID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error deleting topic")
	}
	for _, warning := range outcome.Warnings {
		log.Warn().Msg(warning)
	}
	log.Info().Str("topic", topicID).Msg("Topic deleted")
}

func (a *app) printStats(ctx context.Context, topicID string) {
	total, err := a.registry.CountProcessed(ctx, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Error counting documents")
	}
	fmt.Printf("Processed documents: %d\n", total)
	if topicID != "" {
		count, err := a.registry.CountProcessed(ctx, topicID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error counting topic documents")
		}
		fmt.Printf("Topic %s: %d documents, %d chunks\n", topicID, count, a.index.DocumentCount(topicID))
	}
}
