// File: cmd/helpers_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.PNG")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	att, err := loadAttachment(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MediaType)
	assert.Len(t, att.Data, 4)
}

func TestLoadAttachment_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadAttachment(filepath.Join(t.TempDir(), "nope.pdf"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.pdf")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := loadAttachment(path)
		assert.Error(t, err)
	})
}

// Every task command must be registered on the root.
func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"audit", "bom", "search", "firmware", "serve"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}
