package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPS-IT/migrator/internal/domain"
)

// mockLogger implements Logger for testing.
type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})  {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (m *mockLogger) Warn(_ context.Context, msg string, _ map[string]interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockDiffer implements domain.Differ for testing.
type mockDiffer struct {
	result      *domain.DiffResult
	generateErr error
	applyResult *domain.ApplyResult
	applyErr    error

	applyCalled bool
}

func (m *mockDiffer) GenerateDiff(_ context.Context, _, _ domain.Collector, _ domain.Storage) (*domain.DiffResult, error) {
	return m.result, m.generateErr
}

func (m *mockDiffer) ApplyDiff(_ context.Context, result *domain.DiffResult, _ domain.Storage) (*domain.ApplyResult, error) {
	m.applyCalled = true
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	if m.applyResult != nil {
		return m.applyResult, nil
	}
	if !result.Outcome().IsSuccessful() {
		return domain.NewRefusal(result), nil
	}
	return &domain.ApplyResult{Status: domain.ApplyStatusApplied, Result: result}, nil
}

// mockStorage implements domain.Storage for testing.
type mockStorage struct{}

func (m *mockStorage) Collect(_ context.Context) (map[string][]byte, error) { return nil, nil }
func (m *mockStorage) Root() string                                         { return "/base" }
func (m *mockStorage) WriteFile(_ context.Context, _ string, _ []byte) error {
	return nil
}
func (m *mockStorage) RemoveFile(_ context.Context, _ string) error { return nil }

type emptyCollector struct{}

func (emptyCollector) Collect(_ context.Context) (map[string][]byte, error) { return nil, nil }

func successfulResult() *domain.DiffResult {
	return domain.NewDiffResult([]domain.DiffObject{
		{Mode: domain.DiffModeModified, OriginalPath: "a.txt", DestinationPath: "a.txt"},
	}, "patch", domain.Successful())
}

func TestNewMigrator_MigrationsEnabledByDefault(t *testing.T) {
	m := NewMigrator(&mockDiffer{}, &mockLogger{})

	assert.True(t, m.MigrationsEnabled())
}

func TestMigrator_Migrate_AppliesDiff(t *testing.T) {
	// Arrange
	result := successfulResult()
	differ := &mockDiffer{result: result}
	m := NewMigrator(differ, &mockLogger{})

	// Act
	got, err := m.Migrate(context.Background(), emptyCollector{}, emptyCollector{}, &mockStorage{})

	// Assert
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.True(t, differ.applyCalled)
}

func TestMigrator_Migrate_DryRunSkipsApply(t *testing.T) {
	result := successfulResult()
	differ := &mockDiffer{result: result}
	m := NewMigrator(differ, &mockLogger{})
	m.PerformMigrations(false)

	got, err := m.Migrate(context.Background(), emptyCollector{}, emptyCollector{}, &mockStorage{})

	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.False(t, differ.applyCalled)
	assert.False(t, m.MigrationsEnabled())
}

func TestMigrator_Migrate_FailedOutcomeIsStillHandedToApply(t *testing.T) {
	result := domain.NewDiffResult(nil, "", domain.Failed("Conflicts in: a.txt"))
	differ := &mockDiffer{result: result}
	log := &mockLogger{}
	m := NewMigrator(differ, log)

	got, err := m.Migrate(context.Background(), emptyCollector{}, emptyCollector{}, &mockStorage{})

	require.NoError(t, err)
	assert.True(t, differ.applyCalled)
	assert.Equal(t, "Conflicts in: a.txt", got.Outcome().Message())
	assert.Equal(t, []string{"diff was not applied"}, log.warnings)
}

func TestMigrator_Migrate_RefusalReplacesResult(t *testing.T) {
	result := successfulResult()
	refusal := domain.NewRefusal(result)
	differ := &mockDiffer{result: result, applyResult: refusal}
	m := NewMigrator(differ, &mockLogger{})

	got, err := m.Migrate(context.Background(), emptyCollector{}, emptyCollector{}, &mockStorage{})

	require.NoError(t, err)
	assert.Same(t, refusal.Result, got)
	assert.False(t, got.Outcome().IsSuccessful())
	assert.Equal(t, domain.ApplyRefusedMessage, got.Outcome().Message())
	assert.Equal(t, result.DiffObjects(), got.DiffObjects())
}

func TestMigrator_Migrate_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		differ *mockDiffer
		msg    string
	}{
		{
			name:   "generate fails",
			differ: &mockDiffer{generateErr: boom},
			msg:    "failed to generate diff",
		},
		{
			name:   "apply fails",
			differ: &mockDiffer{result: successfulResult(), applyErr: boom},
			msg:    "failed to apply diff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMigrator(tt.differ, &mockLogger{})

			_, err := m.Migrate(context.Background(), emptyCollector{}, emptyCollector{}, &mockStorage{})

			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
