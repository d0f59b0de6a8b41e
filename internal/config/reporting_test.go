package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReportingConfigHolder_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewReportingConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultReportingConfig(), holder.Get())
}

func TestReportingConfigHolder_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	body := "reporting:\n  unassignedBranchLabel: unassigned\n  historyPageSize: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reporting.yml"), []byte(body), 0o600))
	t.Chdir(dir)

	holder, err := NewReportingConfigHolder(zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "unassigned", cfg.UnassignedBranchLabel)
	assert.Equal(t, 10, cfg.HistoryPageSize)
	assert.Equal(t, 100, cfg.ReportListPageSize)
	assert.Equal(t, 200, cfg.MaxLinesPerSubmission)
}

func TestReportingConfigHolder_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	body := "reporting:\n  historyPageSize: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reporting.yml"), []byte(body), 0o600))
	t.Chdir(dir)

	_, err := NewReportingConfigHolder(zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *ReportingConfigHolder
	assert.Equal(t, DefaultReportingConfig(), holder.Get())
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_SUBMIT_ACTOR_BURST", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 3, cfg.RateLimit.SubmitActorBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
