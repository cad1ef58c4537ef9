package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput redirects logs to a buffer and restores the defaults when
// the test finishes.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestVerboseToggle(t *testing.T) {
	captureOutput(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_Formats(t *testing.T) {
	buf := captureOutput(t)
	SetVerbose(true)

	Debug("fusing %d vector and %d fts results", 5, 3)

	assert.Equal(t, "[DEBUG] fusing 5 vector and 3 fts results\n", buf.String())
}

func TestDebug_SilentWithoutVerbose(t *testing.T) {
	buf := captureOutput(t)
	SetVerbose(false)

	Debug("embedding query")
	Info("retrieved %d chunks", 4)
	Warn("vector search failed, falling back to fts")
	Section("Hybrid Search")

	assert.Zero(t, buf.Len(), "nothing may be written unless verbose is on")
}

func TestSection_Header(t *testing.T) {
	buf := captureOutput(t)
	SetVerbose(true)

	Section("Retrieval")

	assert.Equal(t, "\n=== Retrieval ===\n", buf.String())
}

func TestInfoAndWarn_Prefixes(t *testing.T) {
	buf := captureOutput(t)
	SetVerbose(true)

	Info("loaded config from %s", "config.toml")
	Warn("generation unavailable, returning citations only")

	out := buf.String()
	assert.Contains(t, out, "[INFO] loaded config from config.toml\n")
	assert.Contains(t, out, "[WARN] generation unavailable, returning citations only\n")
}

// lockedWriter serialises writes so concurrent Debug calls, which only
// hold the logger's read lock, stay race-free in the test.
type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func TestConcurrentUse(t *testing.T) {
	SetOutput(&lockedWriter{})
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			SetVerbose(true)
			Debug("worker %d embedding batch", n)
			IsVerbose()
			SetVerbose(false)
		}(i)
	}
	wg.Wait()
}
