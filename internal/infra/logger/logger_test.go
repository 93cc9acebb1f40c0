package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"daily_quote_mailer/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToBothSinks(t *testing.T) {
	var console, file bytes.Buffer
	log := New(&config.AppConfig{LogLevel: "info", Environment: "development"}, &console, &file)

	log.Info("quote fetched")

	assert.Contains(t, console.String(), "quote fetched")
	assert.Contains(t, file.String(), "quote fetched")
	assert.NotContains(t, file.String(), "\x1b[")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	log := New(&config.AppConfig{LogLevel: "chatty"}, &console, nil)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, console.String(), "Invalid log level 'chatty'")
}

func TestNew_JSONInProduction(t *testing.T) {
	var console bytes.Buffer
	log := New(&config.AppConfig{LogLevel: "info", Environment: "production"}, &console, nil)

	log.WithField("recipient", "a@x.com").Info("sent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(console.Bytes(), &entry))
	assert.Equal(t, "sent", entry["msg"])
	assert.Equal(t, "a@x.com", entry["recipient"])
}

func TestSetup_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := &config.AppConfig{LogLevel: "info", LogDir: dir}

	first, err := Setup(cfg)
	require.NoError(t, err)
	second, err := Setup(&config.AppConfig{LogLevel: "debug", LogDir: t.TempDir()})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, logrus.InfoLevel, second.GetLevel())

	first.Info("written to daily file")
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Regexp(t, `^quotes_\d{8}\.log$`, files[0].Name())

	content, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to daily file")
}

func TestDailyFile_SwitchesFileWhenDateChanges(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 14, 23, 59, 0, 0, time.Local)
	f, err := newDailyFile(dir, func() time.Time { return now })
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("first run\n"))
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = f.Write([]byte("second run\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "quotes_20261014.log"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "quotes_20261015.log"))
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(first))
	assert.Equal(t, "second run\n", string(second))
}
