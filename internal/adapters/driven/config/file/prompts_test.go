package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-cli/internal/core/services"
)

func TestPromptStore_DefaultAndLazyInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Constructor does no I/O.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	prompt, err := store.Load(PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, services.DefaultRAGInstructions, prompt, "embedded default must match the RAG service's own default")

	// First Load materialises the editable default file.
	_, statErr = os.Stat(filepath.Join(dir, PromptRAGAnswer+".txt"))
	assert.NoError(t, statErr)
}

func TestPromptStore_UserFileWins(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer tersely. Cite with [n]."
	require.NoError(t, os.WriteFile(filepath.Join(dir, PromptRAGAnswer+".txt"), []byte(custom+"\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_ReloadPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(PromptRAGAnswer)
	require.NoError(t, err)

	edited := "Edited instructions."
	require.NoError(t, os.WriteFile(filepath.Join(dir, PromptRAGAnswer+".txt"), []byte(edited), 0600))

	// Cached until reloaded.
	cached, err := store.Load(PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, edited, fresh)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no-such-prompt")
	assert.Error(t, err)
}
