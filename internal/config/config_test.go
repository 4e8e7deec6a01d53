package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

const sampleYAML = `
server:
  port: 9090
database:
  dsn: postgres://u:p@localhost:5432/progress
  log_level: info
sync:
  interval: 30s
sheets:
  spreadsheet_id: from-yaml
leetcode:
  us:
    base_url: http://127.0.0.1/graphql
leaderboard:
  timezone: Asia/Shanghai
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigWithDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 15, cfg.Sync.SubmissionLimit)
	assert.Equal(t, "A1:Z", cfg.Sheets.Range)
	assert.Equal(t, "./data/leetcode_problem.csv", cfg.Catalog.SeedPath)
	assert.Equal(t, 5*time.Minute, cfg.Leaderboard.CacheTTL)
	assert.Equal(t, "http://127.0.0.1/graphql", cfg.LeetCode["us"].BaseURL)
	assert.Equal(t, logger.Info, cfg.Database.GORMLogLevel())
	assert.True(t, cfg.Database.GetGORMConfig().TranslateError)
	assert.Equal(t, "Asia/Shanghai", cfg.Leaderboard.Location().String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GOOGLE_SHEET_ID", "from-env")
	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "secret", cfg.Sheets.APIKey)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, (&LeaderboardConfig{}).Location())
	assert.Equal(t, time.UTC, (&LeaderboardConfig{Timezone: "Mars/Olympus"}).Location())
}
