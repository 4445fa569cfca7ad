package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndAliases(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_URL", "postgres://localhost/invoices")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("INVOICE_PIPELINE_STAGE_TIMEOUT", "5s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/invoices", cfg.Database.DSN)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.StageTimeout)
	assert.True(t, cfg.Pipeline.AuditLog)
	assert.InDelta(t, 0.1, float64(cfg.LLM.Temperature), 1e-6)
	assert.Equal(t, 1800, cfg.OCR.TargetWidth)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	require.NoError(t, cfg.ValidateForPipeline())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DB_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(dir, "invoices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  dsn: file:test.db
pipeline:
  strict_line_items: true
llm:
  temperature: 0
logging:
  level: debug
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Pipeline.StrictLineItems)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Zero(t, cfg.LLM.Temperature)
	require.NoError(t, cfg.Validate())

	err = cfg.ValidateForPipeline()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INVOICE_DATABASE_DRIVER", "mysql")
	t.Setenv("DB_URL", "x")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)
}
