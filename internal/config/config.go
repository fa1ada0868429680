package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	DSN      string `yaml:"dsn" validate:"required"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Model   string `yaml:"model"`
	Key     string `yaml:"key"`
	// AutoSelect enables VRAM-tiered model selection instead of the fixed
	// default model. Disabled until the tiered policy is signed off.
	AutoSelect bool `yaml:"auto_select"`
}

type RAGConfig struct {
	Collection      string  `yaml:"collection" validate:"required"`
	VectorDBPath    string  `yaml:"vector_db_path" validate:"required"`
	InMemory        bool    `yaml:"in_memory"`
	EncryptionKey   string  `yaml:"encryption_key" validate:"omitempty,len=32"` // 32 bytes, AES-256 snapshots
	TopK            int     `yaml:"top_k" validate:"gte=1"`
	ScoreThreshold  float64 `yaml:"score_threshold" validate:"gte=0,lte=1"`
	Diversify       bool    `yaml:"diversify"`
	DiversityWeight float64 `yaml:"diversity_weight" validate:"gte=0,lte=1"`
}

type CacheConfig struct {
	Capacity  int           `yaml:"capacity" validate:"gte=1"`
	TTLString string        `yaml:"ttl"`
	TTL       time.Duration `yaml:"-" validate:"gt=0"`
}

type HistoryConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type Config struct {
	Database DBConfig      `yaml:"database"`
	EmbedLLM LLMConfig     `yaml:"embed_llm"`
	RAG      RAGConfig     `yaml:"rag"`
	Cache    CacheConfig   `yaml:"cache"`
	History  HistoryConfig `yaml:"history"`
}

// LoadConfig reads and validates the YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.RAG.Collection == "" {
		c.RAG.Collection = "documents"
	}
	if c.RAG.VectorDBPath == "" {
		c.RAG.VectorDBPath = "./chromemdb"
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.DiversityWeight == 0 {
		c.RAG.DiversityWeight = 0.3
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 128
	}
	if c.Cache.TTLString != "" {
		ttl, err := time.ParseDuration(c.Cache.TTLString)
		if err != nil {
			return fmt.Errorf("cache ttl: %w", err)
		}
		c.Cache.TTL = ttl
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 15 * time.Minute
	}
	if c.History.Path == "" {
		c.History.Path = "./historydb"
	}
	return nil
}
