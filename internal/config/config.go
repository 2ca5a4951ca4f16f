package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	RAG      RAGConfig      `yaml:"rag"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"`
	IndexDir  string `yaml:"index_dir"`
}

type RAGConfig struct {
	ChunkSize              int      `yaml:"chunk_size"`
	ChunkOverlap           int      `yaml:"chunk_overlap"`
	AttachmentChunkSize    int      `yaml:"attachment_chunk_size"`
	AttachmentChunkOverlap int      `yaml:"attachment_chunk_overlap"`
	TopK                   int      `yaml:"top_k"`
	EmbedBatchSize         int      `yaml:"embed_batch_size"`
	IngestExtensions       []string `yaml:"ingest_extensions"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

const (
	defaultChunkSize              = 500
	defaultChunkOverlap           = 50
	defaultAttachmentChunkSize    = 1000
	defaultAttachmentChunkOverlap = 200
	defaultTopK                   = 4
	defaultEmbedBatchSize         = 50
	defaultUploadDir              = "./uploads"
	defaultIndexDir               = "./chromemdb"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset tuning values so partial config files work
func (c *Config) ApplyDefaults() {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.AttachmentChunkSize <= 0 {
		c.RAG.AttachmentChunkSize = defaultAttachmentChunkSize
	}
	if c.RAG.AttachmentChunkOverlap <= 0 {
		c.RAG.AttachmentChunkOverlap = defaultAttachmentChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.EmbedBatchSize <= 0 {
		c.RAG.EmbedBatchSize = defaultEmbedBatchSize
	}
	if len(c.RAG.IngestExtensions) == 0 {
		c.RAG.IngestExtensions = []string{".pdf"}
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = defaultUploadDir
	}
	if c.Storage.IndexDir == "" {
		c.Storage.IndexDir = defaultIndexDir
	}
}
