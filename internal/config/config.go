package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	ChatModel    string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	// Retrieval tuning. Overlap must stay below chunk size or the chunking
	// loop could fail to advance; Load rejects such configurations outright
	// instead of reinterpreting them.
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK         int `envconfig:"TOP_K" default:"5"`

	// Object storage for uploaded PDFs. When S3 settings are absent the
	// server falls back to the local uploads directory.
	S3Endpoint   string `envconfig:"S3_ENDPOINT"`
	S3AccessKey  string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey  string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket     string `envconfig:"S3_BUCKET" default:"campuschat-documents"`
	S3Region     string `envconfig:"S3_REGION" default:"us-east-1"`
	UploadFolder string `envconfig:"UPLOAD_FOLDER" default:"uploads"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"16777216"`

	WelcomeMessage string `envconfig:"WELCOME_MESSAGE" default:"Hello! I'm here to help you with information about our university. How can I assist you today?"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CAMPUSCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects retrieval settings that would break chunking invariants.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be within [0, chunk size), got %d with size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive, got %d", c.TopK)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
