package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost:5432/docs
embed_llm:
  base_url: http://localhost:11434
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "documents", cfg.RAG.Collection)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 128, cfg.Cache.Capacity)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.EmbedLLM.AutoSelect)
}

func TestLoadConfigParsesTTL(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost:5432/docs
embed_llm:
  base_url: http://localhost:11434
cache:
  ttl: 90s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoadConfigRejectsBadTTL(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost:5432/docs
embed_llm:
  base_url: http://localhost:11434
cache:
  ttl: soon
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsMissingDSN(t *testing.T) {
	path := writeConfig(t, `
embed_llm:
  base_url: http://localhost:11434
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadThreshold(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost:5432/docs
embed_llm:
  base_url: http://localhost:11434
rag:
  score_threshold: 1.5
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsShortEncryptionKey(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: postgres://localhost:5432/docs
embed_llm:
  base_url: http://localhost:11434
rag:
  encryption_key: tooshort
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
