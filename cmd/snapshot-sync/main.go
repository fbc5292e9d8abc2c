package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/snapshot_sync/internal/logging"
	"github.com/MarkoPoloResearchLab/snapshot_sync/internal/snapshot"
	"github.com/sabhiram/go-gitignore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	logger  *zap.Logger
	rootCmd = &cobra.Command{
		Use:   "snapshot-sync [flags]",
		Short: "Copy whitelisted configuration files into a snapshot directory",
		Long: "Copy whitelisted configuration files into a snapshot directory.\n\n" +
			"Do NOT run with --force without knowing what it does: it deletes the results directory first.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resultsDir := viper.GetString("results-dir")
			force := viper.GetBool("force")
			excludeFile := viper.GetString("exclude-file")

			if resultsDir == "" {
				err := errors.New("--results-dir must not be empty")
				logger.Error("missing results-dir", zap.Error(err))
				return err
			}

			whitelist, err := loadWhitelist()
			if err != nil {
				logger.Error("load whitelist", zap.Error(err))
				return err
			}

			excludeMatcher, err := loadExcludeMatcher(excludeFile)
			if err != nil {
				logger.Error("read exclude file", zap.String("path", excludeFile), zap.Error(err))
				return err
			}

			options := snapshot.Options{
				ResultsDirectory: resultsDir,
				Whitelist:        whitelist,
				ExcludeMatcher:   excludeMatcher,
				VerifyContent:    viper.GetBool("verify"),
				ManifestPath:     viper.GetString("manifest"),
			}
			if viper.GetBool("keep-going") {
				options.ErrorPolicy = snapshot.ContinueOnError
			}

			if err := snapshot.PrepareResultsDir(resultsDir, force, logger); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result, err := snapshot.RunAll(ctx, options, logger)
			if err != nil {
				return err
			}

			logger.Debug("snapshot completed",
				zap.String("results-dir", resultsDir),
				zap.Int("directories", result.Directories),
				zap.Any("actions", result.ActionCounters),
			)
			return nil
		},
	}
)

func init() {
	flags := rootCmd.Flags()
	flags.String("results-dir", defaultResultsDir(), "location to write the snapshot to")
	flags.Bool("force", false, "(USE WITH CAUTION) delete and recreate the results directory if it already exists")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "console", "log format (console or json)")
	flags.String("config", "", "YAML config file; a 'paths' list replaces the built-in whitelist")
	flags.String("exclude-file", "", "optional .gitignore-style file with patterns skipped inside directories")
	flags.Bool("keep-going", false, "copy the remaining entries after a failure and report all failures at the end")
	flags.Bool("verify", false, "hash every copied file and compare it with its source")
	flags.String("manifest", "", "write a JSON manifest of copied entries to this path")

	viper.SetEnvPrefix("SNAPSHOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, name := range []string{"results-dir", "force", "log-level", "log-format", "config", "exclude-file", "keep-going", "verify", "manifest"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := readConfig(viper.GetString("config")); err != nil {
			return err
		}
		var err error
		logger, err = logging.NewLogger()
		if err != nil {
			return err
		}
		return nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		os.Exit(1)
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// defaultResultsDir is the "root" directory next to the executable.
func defaultResultsDir() string {
	executable, err := os.Executable()
	if err != nil {
		return "root"
	}
	return filepath.Join(filepath.Dir(executable), "root")
}

// readConfig loads path when given, otherwise an optional snapshot-sync.yaml from the working directory.
func readConfig(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	viper.SetConfigName("snapshot-sync")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func loadWhitelist() ([]string, error) {
	paths := viper.GetStringSlice("paths")
	if len(paths) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		paths = snapshot.DefaultWhitelist(home)
	}
	return snapshot.ValidateWhitelist(paths)
}

func loadExcludeMatcher(path string) (*ignore.GitIgnore, error) {
	if path == "" {
		return ignore.CompileIgnoreLines(), nil
	}
	ig, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ignore.CompileIgnoreLines(), nil
		}
		return nil, err
	}
	return ig, nil
}
