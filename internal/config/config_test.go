package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("recall", pflag.ContinueOnError)
	fs.String("db", "recall.db", "")
	fs.String("addr", ":8080", "")
	fs.String("log-level", "info", "")
	fs.Bool("sync", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10, cfg.Study.NewCardsLimit)
	assert.Equal(t, 3, cfg.Study.GraduateAfter)
	assert.Empty(t, cfg.Auth.Token)
}

func TestLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
  log_format: json
http:
  addr: ":9000"
  read_timeout: 5s
storage:
  path: file.db
study:
  new_cards_limit: 20
sync:
  interval: 15m
`), 0o644))

	t.Setenv("RECALL_STORAGE_PATH", "env.db")
	t.Setenv("RECALL_STUDY_REVIEW_LIMIT", "50")
	t.Setenv("RECALL_AUTH_TOKEN", "s3cret")

	cfg, err := Load(path, testFlags(t, "--addr", ":7000"))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.App.LogLevel)
	assert.Equal(t, "json", cfg.App.LogFormat)
	assert.Equal(t, ":7000", cfg.HTTP.Addr, "flags win over the file")
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout, "unset keys keep defaults")
	assert.Equal(t, "env.db", cfg.Storage.Path, "env wins over the file")
	assert.Equal(t, 20, cfg.Study.NewCardsLimit)
	assert.Equal(t, 50, cfg.Study.ReviewLimit)
	assert.Equal(t, "s3cret", cfg.Auth.Token)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	t.Setenv("RECALL_HTTP_ADDR", ":6000")
	cfg, err := Load("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.HTTP.Addr)
}

func TestValidation(t *testing.T) {
	t.Setenv("RECALL_APP_LOG_FORMAT", "xml")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogFormat")

	cfg := Default()
	cfg.Study.GraduateAfter = 0
	assert.Error(t, cfg.Validate())
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "http.read_timeout", envKey("RECALL_HTTP_READ_TIMEOUT"))
	assert.Equal(t, "study.new_cards_limit", envKey("RECALL_STUDY_NEW_CARDS_LIMIT"))
	assert.Equal(t, "", envKey("RECALL_DEBUG"))
}
