package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestPatchWriter_WritePatch(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		ids      []string
		wantName string
	}{
		{
			name:     "first id is free",
			ids:      []string{"abc123"},
			wantName: "failed_migration_abc123.diff",
		},
		{
			name:     "colliding id is skipped",
			existing: []string{"failed_migration_taken.diff"},
			ids:      []string{"taken", "free"},
			wantName: "failed_migration_free.diff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			dir := t.TempDir()
			for _, name := range tt.existing {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644))
			}
			writer := NewPatchWriterWithIDs(dir, sequence(tt.ids...))

			// Act
			path, err := writer.WritePatch("diff --git a/a b/a\n")

			// Assert
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.wantName), path)
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "diff --git a/a b/a\n", string(content))
			for _, name := range tt.existing {
				kept, err := os.ReadFile(filepath.Join(dir, name))
				require.NoError(t, err)
				assert.Equal(t, "old", string(kept))
			}
		})
	}
}

func TestPatchWriter_WritePatch_NoFreeName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failed_migration_x.diff"), nil, 0o644))
	writer := NewPatchWriterWithIDs(dir, sequence("x"))

	_, err := writer.WritePatch("patch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unused patch file name")
}

func TestPatchWriter_WritePatch_MissingDirectory(t *testing.T) {
	writer := NewPatchWriterWithIDs(filepath.Join(t.TempDir(), "missing"), sequence("x"))

	_, err := writer.WritePatch("patch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create patch file")
}

func TestNewPatchWriter_UsesUUIDs(t *testing.T) {
	dir := t.TempDir()
	writer := NewPatchWriter(dir)

	first, err := writer.WritePatch("a")
	require.NoError(t, err)
	second, err := writer.WritePatch("b")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	name := filepath.Base(first)
	assert.True(t, strings.HasPrefix(name, "failed_migration_"))
	assert.True(t, strings.HasSuffix(name, ".diff"))
	// failed_migration_ + 36 character UUID + .diff
	assert.Len(t, name, len("failed_migration_")+36+len(".diff"))
}

func TestConsole_Plain(t *testing.T) {
	tests := []struct {
		name  string
		write func(c *Console)
		want  string
	}{
		{
			name:  "success",
			write: func(c *Console) { c.Success("Migration was successful.") },
			want:  "\n [OK] Migration was successful. \n\n",
		},
		{
			name:  "error",
			write: func(c *Console) { c.Error("Migration failed, no patches were applied.") },
			want:  "\n [ERROR] Migration failed, no patches were applied. \n\n",
		},
		{
			name:  "section",
			write: func(c *Console) { c.Section("Changed files") },
			want:  "Changed files\n-------------\n\n",
		},
		{
			name:  "note",
			write: func(c *Console) { c.Note("Patch file written to x.diff") },
			want:  "💡 Patch file written to x.diff\n",
		},
		{
			name:  "println",
			write: func(c *Console) { c.Println("line") },
			want:  "line\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			console := NewConsole(&buf, true)

			tt.write(console)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConsole_Comment_Plain(t *testing.T) {
	console := NewConsole(&bytes.Buffer{}, true)

	assert.Equal(t, "--dry-run", console.Comment("--dry-run"))
}
