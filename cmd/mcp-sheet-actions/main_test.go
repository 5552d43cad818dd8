package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/config"
)

// captureStdout returns what fn writes to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = original }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() { version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit }()

	version = "1.2.3"
	buildTime = "2026-10-01_10:30:00"
	gitCommit = "abc123"

	output := captureStdout(t, printVersion)
	for _, expected := range []string{
		"MCP Sheet Actions",
		"Version: 1.2.3",
		"Build Time: 2026-10-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "debug"})
	assert.Equal(t, os.Stderr, log.Writer())

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "info"})
	assert.Equal(t, io.Discard, log.Writer())

	setupLogging(&config.Config{Mode: config.ModeServer, LogLevel: "info"})
	assert.Equal(t, log.LstdFlags|log.Lshortfile, log.Flags())
}

func TestNewSheetService(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDirectory = t.TempDir()

	service, err := newSheetService(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxFileSize, service.MaxFileSize())
	assert.DirExists(t, cfg.StorageRoot())

	cfg.HelperScriptPath = filepath.Join(t.TempDir(), "missing.js")
	_, err = newSheetService(cfg)
	assert.Error(t, err)
}
