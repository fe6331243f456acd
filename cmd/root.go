// Package cmd provides the CLI commands for migrator.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Console writes user-facing messages.
type Console interface {
	Success(msg string)
	Error(msg string)
	Section(title string)
	Note(msg string)
	Comment(text string) string
	Println(text string)
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// ConfigLoader loads application configuration. An empty path selects the defaults.
	ConfigLoader func(path string) (*AppConfig, error)

	// LoggerFactory creates a logger instance.
	LoggerFactory func(cfg *AppConfig, verbose bool) (Logger, error)

	// BaseFactory creates the writable storage for the base directory.
	BaseFactory func(path string, log Logger) (domain.Storage, error)

	// CollectorFactory creates a collector for a source or target path.
	CollectorFactory func(path string, log Logger) (domain.Collector, error)

	// MigratorFactory creates a Migrator using the given config.
	MigratorFactory func(cfg *AppConfig, log Logger) (domain.Migrator, error)

	// WorkingTreeFactory creates an inspector for the repository containing path.
	WorkingTreeFactory func(path string, log Logger) (domain.WorkingTreeInspector, error)

	// FormatterFactory creates the formatter for rendering diffs to out.
	FormatterFactory func(out io.Writer, plain bool) domain.Formatter

	// ConsoleFactory creates the console for user-facing messages.
	ConsoleFactory func(out io.Writer, plain bool) Console

	// PatchWriterFactory creates a PatchWriter writing into dir.
	PatchWriterFactory func(dir string) domain.PatchWriter

	// PrompterFactory creates a Prompter.
	PrompterFactory func(interactive bool) domain.Prompter

	// Getwd returns the directory relative paths are resolved against.
	Getwd func() (string, error)

	// Stdout is the writer for results and messages.
	Stdout io.Writer

	// Stderr is the writer for errors.
	Stderr io.Writer
}

// AppConfig holds application configuration loaded by ConfigLoader.
type AppConfig struct {
	// Source is the configuration file that was read, empty for defaults only.
	Source string

	// LogLevel is the log level setting.
	LogLevel string

	// Settings is passed to the MigratorFactory.
	Settings any
}

// User-facing messages.
const (
	msgSuccess      = "Migration was successful."
	msgFailed       = "Migration failed, no patches were applied."
	msgChangedFiles = "Changed files"
	msgSavePatch    = "Do you want to save a patch file to the current working directory?"
)

// Command-line flags.
var (
	configPath    string
	verbose       bool
	plain         bool
	noInteraction bool
	dryRun        bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for migrator.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "migrator",
		Short: "Migrate project files from one template version to another",
		Long: `migrator applies the changes between two versions of a project template
to a project that was created from the older version, keeping local
customizations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging and always show changed files")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false,
		"Disable colors and text decoration")
	rootCmd.PersistentFlags().BoolVarP(&noInteraction, "no-interaction", "n", false,
		"Do not ask any interactive question")

	rootCmd.AddCommand(newMigrateCmd(deps))

	return rootCmd
}

func newMigrateCmd(deps *Dependencies) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate <base-directory> <source-directory> <target-directory>",
		Short: "Perform a three-way migration of base from source to target",
		Long: `migrate computes the changes between source and target and merges them into
base. Files changed only in base keep their local state. When base and
target both changed the same lines, nothing is written and the conflicting
files are listed.

Source and target may also be single files.

Examples:
  # Migrate a project from template v1 to v2
  migrator migrate ./my-project ./template-v1 ./template-v2

  # Show what would change without touching the project
  migrator migrate ./my-project ./template-v1 ./template-v2 --dry-run

  # Migrate a single file
  migrator migrate ./my-project ./v1/composer.json ./v2/composer.json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args, deps)
		},
	}

	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Do not perform migrations, but only calculate and show diff")

	return migrateCmd
}

// runMigrate executes the migration with injected dependencies.
func runMigrate(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	cfg, err := deps.ConfigLoader(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log, err := deps.LoggerFactory(cfg, verbose)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	defer closeLogger(log, deps.Stderr)

	cwd, err := deps.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	basePath := resolvePath(cwd, args[0])
	sourcePath := resolvePath(cwd, args[1])
	targetPath := resolvePath(cwd, args[2])

	log.Info(ctx, "starting migrator", map[string]interface{}{
		"base":    basePath,
		"source":  sourcePath,
		"target":  targetPath,
		"dry_run": dryRun,
		"config":  cfg.Source,
	})

	base, err := deps.BaseFactory(basePath, log)
	if err != nil {
		log.Error(ctx, "failed to open base directory", err, map[string]interface{}{
			"path": basePath,
		})
		return err
	}
	source, err := deps.CollectorFactory(sourcePath, log)
	if err != nil {
		log.Error(ctx, "failed to open source", err, map[string]interface{}{
			"path": sourcePath,
		})
		return err
	}
	target, err := deps.CollectorFactory(targetPath, log)
	if err != nil {
		log.Error(ctx, "failed to open target", err, map[string]interface{}{
			"path": targetPath,
		})
		return err
	}

	if !dryRun {
		inspectWorkingTree(ctx, deps, basePath, log)
	}

	migrator, err := deps.MigratorFactory(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize migrator", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}
	migrator.PerformMigrations(!dryRun)

	result, err := migrator.Migrate(ctx, source, target, base)
	if err != nil {
		log.Error(ctx, "migration aborted", err, map[string]interface{}{
			"base": basePath,
		})
		return err
	}

	console := deps.ConsoleFactory(stdout, plain)
	successful := result.Outcome().IsSuccessful()

	if verbose || dryRun || !successful {
		if text, ok := deps.FormatterFactory(stdout, plain).Format(result); ok {
			console.Section(msgChangedFiles)
			console.Println(text)
		}
	}

	if !successful {
		console.Error(msgFailed)
		console.Println(strings.TrimSpace(result.Outcome().Message()))
		if err := offerPatch(ctx, deps, console, cwd, result, log); err != nil {
			return err
		}
		return domain.ErrMigrationFailed
	}

	if dryRun {
		console.Note("No migrations were performed. Omit the " + console.Comment("--dry-run") +
			" parameter to apply migrations.")
		return nil
	}

	console.Success(msgSuccess)
	return nil
}

// inspectWorkingTree logs the version control state of base. A base outside
// any repository, or one that cannot be inspected, does not stop the migration.
func inspectWorkingTree(ctx context.Context, deps *Dependencies, basePath string, log Logger) {
	if deps.WorkingTreeFactory == nil {
		return
	}

	inspector, err := deps.WorkingTreeFactory(basePath, log)
	if errors.Is(err, domain.ErrRepositoryNotFound) {
		log.Debug(ctx, "base directory is not under version control", map[string]interface{}{
			"path": basePath,
		})
		return
	}
	if err != nil {
		log.Warn(ctx, "failed to open repository of base directory", map[string]interface{}{
			"path":  basePath,
			"error": err.Error(),
		})
		return
	}

	if _, err := inspector.Inspect(ctx); err != nil {
		log.Warn(ctx, "failed to inspect working tree", map[string]interface{}{
			"path":  basePath,
			"error": err.Error(),
		})
	}
}

// offerPatch asks whether the patch of a failed migration should be saved to cwd.
func offerPatch(
	ctx context.Context,
	deps *Dependencies,
	console Console,
	cwd string,
	result *domain.DiffResult,
	log Logger,
) error {
	if result.Patch() == "" {
		return nil
	}

	save, err := deps.PrompterFactory(!noInteraction).Confirm(msgSavePatch, false)
	if err != nil {
		return fmt.Errorf("prompt error: %w", err)
	}
	if !save {
		return nil
	}

	file, err := deps.PatchWriterFactory(cwd).WritePatch(result.Patch())
	if err != nil {
		log.Error(ctx, "failed to write patch file", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	console.Note("Patch file written to " + console.Comment(file))
	return nil
}

// closeLogger flushes and closes loggers that hold files.
func closeLogger(log Logger, stderr io.Writer) {
	closer, ok := log.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		if stderr == nil {
			stderr = os.Stderr
		}
		writeErrorf(stderr, "warning: could not close log file: %v\n", err)
	}
}

func resolvePath(cwd, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(cwd, path)
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, domain.ErrMigrationFailed) {
			stderr := io.Writer(os.Stderr)
			if defaultDeps != nil && defaultDeps.Stderr != nil {
				stderr = defaultDeps.Stderr
			}
			writeErrorf(stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// writeErrorf writes an error message to the given writer.
// This is a best-effort operation; there is no recovery action if stderr writes fail.
func writeErrorf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
