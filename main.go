// Package main is the entry point for the migrator CLI application.
// migrator merges the changes between two versions of a project template
// into a project created from the older one.
package main

import (
	"io"
	"os"

	"github.com/CPS-IT/migrator/cmd"
	"github.com/CPS-IT/migrator/internal/adapters/collector"
	"github.com/CPS-IT/migrator/internal/adapters/differ"
	"github.com/CPS-IT/migrator/internal/adapters/formatter"
	"github.com/CPS-IT/migrator/internal/adapters/git"
	logadapter "github.com/CPS-IT/migrator/internal/adapters/logger"
	"github.com/CPS-IT/migrator/internal/adapters/output"
	"github.com/CPS-IT/migrator/internal/adapters/prompt"
	"github.com/CPS-IT/migrator/internal/domain"
	"github.com/CPS-IT/migrator/internal/infrastructure/config"
	"github.com/CPS-IT/migrator/internal/merge"
	"github.com/CPS-IT/migrator/internal/usecases"
)

func main() {
	// Wire up production dependencies
	deps := &cmd.Dependencies{
		ConfigLoader: func(path string) (*cmd.AppConfig, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return newAppConfig(cfg), nil
		},

		LoggerFactory: func(cfg *cmd.AppConfig, verbose bool) (cmd.Logger, error) {
			settings, err := settingsOf(cfg)
			if err != nil {
				return nil, err
			}
			return logadapter.New(logadapter.Options{
				Level:      settings.Log.Level,
				Verbose:    verbose,
				FilePath:   settings.Log.File,
				MaxSizeMB:  settings.Log.MaxSizeMB,
				MaxBackups: settings.Log.MaxBackups,
			})
		},

		BaseFactory: func(path string, log cmd.Logger) (domain.Storage, error) {
			return collector.NewDirectory(path, log)
		},

		CollectorFactory: func(path string, log cmd.Logger) (domain.Collector, error) {
			return collector.NewForPath(path, log)
		},

		MigratorFactory: func(cfg *cmd.AppConfig, log cmd.Logger) (domain.Migrator, error) {
			settings, err := settingsOf(cfg)
			if err != nil {
				return nil, err
			}
			return usecases.NewMigrator(differ.New(differOptions(settings), log), log), nil
		},

		WorkingTreeFactory: func(path string, log cmd.Logger) (domain.WorkingTreeInspector, error) {
			return git.NewGoGitWorkingTree(path, log)
		},

		FormatterFactory: func(out io.Writer, plain bool) domain.Formatter {
			if plain {
				return formatter.NewText()
			}
			return formatter.NewCLI(out)
		},

		ConsoleFactory: func(out io.Writer, plain bool) cmd.Console {
			return output.NewConsole(out, plain)
		},

		PatchWriterFactory: func(dir string) domain.PatchWriter {
			return output.NewPatchWriter(dir)
		},

		PrompterFactory: func(interactive bool) domain.Prompter {
			return prompt.NewTerminal(interactive)
		},

		Getwd: os.Getwd,

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

func newAppConfig(cfg *config.Config) *cmd.AppConfig {
	return &cmd.AppConfig{
		Source:   cfg.Source,
		LogLevel: cfg.Log.Level,
		Settings: cfg,
	}
}

func settingsOf(cfg *cmd.AppConfig) (*config.Config, error) {
	settings, ok := cfg.Settings.(*config.Config)
	if !ok {
		return nil, newConfigTypeError("*config.Config")
	}
	return settings, nil
}

func differOptions(cfg *config.Config) differ.Options {
	return differ.Options{
		ContextLines: cfg.Diff.ContextLines,
		MaxTextBytes: cfg.Diff.MaxTextBytes,
		Renames: merge.RenameOptions{
			Enabled:   cfg.Diff.Renames,
			Threshold: cfg.Diff.RenameThreshold,
		},
		IgnorePatterns: cfg.Diff.Ignore,
		Limits: differ.Limits{
			MaxFiles: cfg.Limits.MaxFiles,
			MaxBytes: cfg.Limits.MaxBytes,
		},
	}
}

func newConfigTypeError(expected string) error {
	return &configTypeError{expected: expected}
}

// configTypeError is returned when configuration type assertion fails.
type configTypeError struct {
	expected string
}

func (e *configTypeError) Error() string {
	return "invalid configuration type: expected " + e.expected
}
