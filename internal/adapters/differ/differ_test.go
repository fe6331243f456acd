package differ

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/migrator/internal/adapters/collector"
	"github.com/CPS-IT/migrator/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (l *testLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// memStorage implements domain.Storage in memory.
type memStorage struct {
	files    map[string]string
	writeErr error
	writes   int
	removes  int
}

func newMemStorage(files map[string]string) *memStorage {
	c := make(map[string]string, len(files))
	for p, v := range files {
		c[p] = v
	}
	return &memStorage{files: c}
}

func (m *memStorage) Collect(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(m.files))
	for p, v := range m.files {
		out[p] = []byte(v)
	}
	return out, nil
}

func (m *memStorage) Root() string { return "mem" }

func (m *memStorage) WriteFile(_ context.Context, path string, content []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.files[path] = string(content)
	return nil
}

func (m *memStorage) RemoveFile(_ context.Context, path string) error {
	m.removes++
	delete(m.files, path)
	return nil
}

const composerJSON = `{
    "name": "acme/app",
    "require": {
        "php": "^8.1"
    },
    "require-dev": {
        "phpunit/phpunit": "^9.5"
    }
}
`

const gitignore = "/vendor/\n/var/\n"

func newTestDiffer() *ThreeWayDiffer {
	return New(DefaultOptions(), &testLogger{})
}

func scenario() (source, target *collector.Array, base *memStorage) {
	files := map[string]string{"composer.json": composerJSON, ".gitignore": gitignore}
	source = collector.NewArrayFromStrings(files)
	target = collector.NewArrayFromStrings(map[string]string{
		"composer.json": strings.Replace(composerJSON, `"^9.5"`, `"^10.0"`, 1),
	})
	return source, target, newMemStorage(files)
}

func TestThreeWayDiffer_GenerateDiff_ComposerScenario(t *testing.T) {
	// Arrange
	source, target, base := scenario()
	d := newTestDiffer()

	// Act
	result, err := d.GenerateDiff(context.Background(), source, target, base)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Outcome().IsSuccessful())

	objects := result.DiffObjects()
	require.Len(t, objects, 2)

	assert.Equal(t, domain.DiffModeDeleted, objects[0].Mode)
	assert.Equal(t, ".gitignore", objects[0].OriginalPath)
	assert.Empty(t, objects[0].Hunks)

	assert.Equal(t, domain.DiffModeModified, objects[1].Mode)
	assert.Equal(t, "composer.json", objects[1].Path())
	require.Len(t, objects[1].Hunks, 1)
	assert.Equal(t, "@@ -4,6 +4,6 @@", objects[1].Hunks[0].Header())

	expected := `diff --git a/.gitignore b/.gitignore
deleted file mode 100644
--- a/.gitignore
+++ /dev/null
@@ -1,2 +0,0 @@
-/vendor/
-/var/
diff --git a/composer.json b/composer.json
--- a/composer.json
+++ b/composer.json
@@ -4,6 +4,6 @@
         "php": "^8.1"
     },
     "require-dev": {
-        "phpunit/phpunit": "^9.5"
+        "phpunit/phpunit": "^10.0"
     }
 }
`
	assert.Equal(t, expected, result.Patch())
}

func TestThreeWayDiffer_GenerateDiff_NoOp(t *testing.T) {
	files := map[string]string{"a.txt": "a\n", "b/c.txt": "c\n"}
	same := collector.NewArrayFromStrings(files)
	base := newMemStorage(map[string]string{"unrelated.txt": "x\n"})

	result, err := newTestDiffer().GenerateDiff(context.Background(), same, same, base)

	require.NoError(t, err)
	assert.True(t, result.Outcome().IsSuccessful())
	assert.Empty(t, result.DiffObjects())
	assert.Empty(t, result.Patch())
}

func TestThreeWayDiffer_GenerateDiff_Conflicts(t *testing.T) {
	source := collector.NewArrayFromStrings(map[string]string{"a.txt": "1\n", "b.txt": "1\n", "c.txt": "1\n"})
	target := collector.NewArrayFromStrings(map[string]string{"a.txt": "2\n", "b.txt": "2\n", "c.txt": "2\n"})
	base := newMemStorage(map[string]string{"a.txt": "ours\n", "b.txt": "1\n", "c.txt": "ours\n"})

	result, err := newTestDiffer().GenerateDiff(context.Background(), source, target, base)

	require.NoError(t, err)
	assert.False(t, result.Outcome().IsSuccessful())
	assert.Equal(t, "Conflicts in: a.txt, c.txt", result.Outcome().Message())

	modes := make(map[string]domain.DiffMode)
	for _, o := range result.DiffObjects() {
		modes[o.Path()] = o.Mode
	}
	assert.Equal(t, map[string]domain.DiffMode{
		"a.txt": domain.DiffModeConflicted,
		"b.txt": domain.DiffModeModified,
		"c.txt": domain.DiffModeConflicted,
	}, modes)
	assert.Contains(t, result.Patch(), "-ours\n+2\n")
}

func TestThreeWayDiffer_GenerateDiff_BinaryAndRename(t *testing.T) {
	source := collector.NewArrayFromStrings(map[string]string{"logo.png": "\x00png1", "docs/old.md": "# Title\n"})
	target := collector.NewArrayFromStrings(map[string]string{"logo.png": "\x00png2", "docs/new.md": "# Title\n"})
	base := newMemStorage(map[string]string{"logo.png": "\x00png1", "docs/old.md": "# Title\n"})

	result, err := newTestDiffer().GenerateDiff(context.Background(), source, target, base)

	require.NoError(t, err)
	objects := result.DiffObjects()
	require.Len(t, objects, 2)
	assert.Equal(t, domain.DiffModeRenamed, objects[0].Mode)
	assert.Equal(t, "docs/old.md", objects[0].OriginalPath)
	assert.Equal(t, "docs/new.md", objects[0].DestinationPath)
	assert.True(t, objects[1].Binary)
	assert.Empty(t, objects[1].Hunks)

	assert.Contains(t, result.Patch(), "diff --git a/docs/old.md b/docs/new.md\nrename from docs/old.md\nrename to docs/new.md\n")
	assert.Contains(t, result.Patch(), "Binary files a/logo.png and b/logo.png differ\n")
}

func TestThreeWayDiffer_GenerateDiff_IgnoredPaths(t *testing.T) {
	opts := DefaultOptions()
	opts.IgnorePatterns = []string{"composer.lock"}
	d := New(opts, &testLogger{})

	source := collector.NewArrayFromStrings(map[string]string{"composer.lock": "1\n"})
	target := collector.NewArrayFromStrings(map[string]string{"composer.lock": "2\n"})
	base := newMemStorage(map[string]string{"composer.lock": "1\n"})

	result, err := d.GenerateDiff(context.Background(), source, target, base)
	require.NoError(t, err)

	objects := result.DiffObjects()
	require.Len(t, objects, 1)
	assert.Equal(t, domain.DiffModeIgnored, objects[0].Mode)
	assert.Equal(t, "composer.lock", objects[0].OriginalPath)
	assert.Equal(t, "composer.lock", objects[0].DestinationPath)
	assert.Empty(t, result.Patch())

	applied, err := d.ApplyDiff(context.Background(), result, base)
	require.NoError(t, err)
	assert.False(t, applied.Refused())
	assert.Equal(t, "1\n", base.files["composer.lock"])
}

func TestThreeWayDiffer_GenerateDiff_Limits(t *testing.T) {
	tests := []struct {
		name    string
		limits  Limits
		message string
	}{
		{name: "file count", limits: Limits{MaxFiles: 1}, message: "source contains 2 files, the limit is 1"},
		{name: "byte size", limits: Limits{MaxBytes: 3}, message: "source contains 4 B, the limit is 3 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Limits = tt.limits
			source := collector.NewArrayFromStrings(map[string]string{"a": "aa", "b": "bb"})

			_, err := New(opts, &testLogger{}).GenerateDiff(context.Background(), source, source, newMemStorage(nil))

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSnapshotTooLarge)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestThreeWayDiffer_GenerateDiff_CollectorError(t *testing.T) {
	boom := errors.New("boom")
	failing := collector.NewCallback(func(_ context.Context) (map[string][]byte, error) { return nil, boom })

	_, err := newTestDiffer().GenerateDiff(context.Background(), failing, failing, newMemStorage(nil))

	assert.ErrorIs(t, err, boom)
}

func TestThreeWayDiffer_ApplyDiff_Success(t *testing.T) {
	// Arrange
	source, target, base := scenario()
	d := newTestDiffer()
	ctx := context.Background()
	result, err := d.GenerateDiff(ctx, source, target, base)
	require.NoError(t, err)

	// Act
	applied, err := d.ApplyDiff(ctx, result, base)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.ApplyStatusApplied, applied.Status)
	assert.Equal(t, []string{"composer.json"}, applied.Written)
	assert.Equal(t, []string{".gitignore"}, applied.Removed)
	assert.Equal(t, map[string]string{
		"composer.json": strings.Replace(composerJSON, `"^9.5"`, `"^10.0"`, 1),
	}, base.files)
}

func TestThreeWayDiffer_ApplyDiff_RefusesFailedOutcome(t *testing.T) {
	source := collector.NewArrayFromStrings(map[string]string{"a.txt": "1\n"})
	target := collector.NewArrayFromStrings(map[string]string{"a.txt": "2\n"})
	base := newMemStorage(map[string]string{"a.txt": "ours\n"})
	d := newTestDiffer()
	ctx := context.Background()

	result, err := d.GenerateDiff(ctx, source, target, base)
	require.NoError(t, err)
	applied, err := d.ApplyDiff(ctx, result, base)

	require.NoError(t, err)
	assert.True(t, applied.Refused())
	assert.Equal(t, result.Outcome(), applied.Result.Outcome())
	assert.Equal(t, 0, base.writes+base.removes)
	assert.Equal(t, "ours\n", base.files["a.txt"])
}

func TestThreeWayDiffer_ApplyDiff_RefusesStaleResult(t *testing.T) {
	tests := []struct {
		name   string
		result func(t *testing.T, d *ThreeWayDiffer, base *memStorage) *domain.DiffResult
	}{
		{
			name: "result without trees",
			result: func(_ *testing.T, _ *ThreeWayDiffer, _ *memStorage) *domain.DiffResult {
				return domain.NewDiffResult(nil, "", domain.Successful())
			},
		},
		{
			name: "base changed after generation",
			result: func(t *testing.T, d *ThreeWayDiffer, base *memStorage) *domain.DiffResult {
				source, target, _ := scenario()
				result, err := d.GenerateDiff(context.Background(), source, target, base)
				require.NoError(t, err)
				base.files["composer.json"] = "changed meanwhile\n"
				return result
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, base := scenario()
			d := newTestDiffer()
			result := tt.result(t, d, base)
			before := newMemStorage(base.files)

			applied, err := d.ApplyDiff(context.Background(), result, base)

			require.NoError(t, err)
			assert.True(t, applied.Refused())
			assert.False(t, applied.Result.Outcome().IsSuccessful())
			assert.Equal(t, domain.ApplyRefusedMessage, applied.Result.Outcome().Message())
			assert.Equal(t, before.files, base.files)
		})
	}
}

func TestThreeWayDiffer_ApplyDiff_AggregatesWriteErrors(t *testing.T) {
	source := collector.NewArrayFromStrings(map[string]string{})
	target := collector.NewArrayFromStrings(map[string]string{"a.txt": "a\n", "b.txt": "b\n"})
	base := newMemStorage(nil)
	d := newTestDiffer()
	ctx := context.Background()
	result, err := d.GenerateDiff(ctx, source, target, base)
	require.NoError(t, err)

	base.writeErr = errors.New("disk full")
	_, err = d.ApplyDiff(ctx, result, base)

	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "disk full"))
}

func TestThreeWayDiffer_ApplyDiff_Directory(t *testing.T) {
	// Arrange
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "composer.json"), []byte(composerJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644))
	base, err := collector.NewDirectory(root, &testLogger{})
	require.NoError(t, err)
	source, target, _ := scenario()
	d := newTestDiffer()
	ctx := context.Background()

	// Act
	result, err := d.GenerateDiff(ctx, source, target, base)
	require.NoError(t, err)
	applied, err := d.ApplyDiff(ctx, result, base)

	// Assert
	require.NoError(t, err)
	assert.False(t, applied.Refused())
	assert.NoFileExists(t, filepath.Join(root, ".gitignore"))
	got, err := os.ReadFile(filepath.Join(root, "composer.json"))
	require.NoError(t, err)
	assert.Contains(t, string(got), `"phpunit/phpunit": "^10.0"`)
}

func TestThreeWayDiffer_ApplyDiff_DirectoryTypeChange(t *testing.T) {
	tests := []struct {
		name   string
		source map[string]string
		target map[string]string
	}{
		{
			name:   "file becomes directory",
			source: map[string]string{"foo": "x\n"},
			target: map[string]string{"foo/bar": "y\n"},
		},
		{
			name:   "directory becomes file",
			source: map[string]string{"foo/bar": "x\n"},
			target: map[string]string{"foo": "y\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			root := t.TempDir()
			for rel, content := range tt.source {
				p := filepath.Join(root, filepath.FromSlash(rel))
				require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
				require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
			}
			base, err := collector.NewDirectory(root, &testLogger{})
			require.NoError(t, err)
			d := newTestDiffer()
			ctx := context.Background()

			result, err := d.GenerateDiff(ctx,
				collector.NewArrayFromStrings(tt.source),
				collector.NewArrayFromStrings(tt.target),
				base)
			require.NoError(t, err)
			require.True(t, result.Outcome().IsSuccessful())

			// Act
			applied, err := d.ApplyDiff(ctx, result, base)

			// Assert
			require.NoError(t, err)
			assert.False(t, applied.Refused())
			files, err := base.Collect(ctx)
			require.NoError(t, err)
			got := make(map[string]string, len(files))
			for p, c := range files {
				got[p] = string(c)
			}
			assert.Equal(t, tt.target, got)
		})
	}
}
