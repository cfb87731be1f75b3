// Package app provides the entry point for the thv-assetsync command line.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-assetsync/internal/config"
	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/versions"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagFormat = "format"

	formatJSON = "json"
)

// LogLevel is the level of the default logger; --debug lowers it for the running command
var LogLevel = new(slog.LevelVar)

// rootOptions carries the state shared by every subcommand of one root command
type rootOptions struct {
	v *viper.Viper
}

// NewRootCmd creates a new root command for thv-assetsync.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}
	config.BindEnv(opts.v)

	rootCmd := &cobra.Command{
		Use:               "thv-assetsync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Keep localized resource bundles in sync with their git remote",
		Long: `thv-assetsync downloads, updates and verifies resource bundles identified by
locale and type. Every bundle is a branch of one remote git repository.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.v.GetBool(flagDebug) {
				LogLevel.Set(slog.LevelDebug)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Path to configuration file (YAML format)")
	flags.String(config.KeyRemote, "", "URL of the bundle repository")
	flags.String(config.KeyDataDir, "", "Directory holding working copies and revision records")
	flags.String(config.KeyExportDir, "", "Directory receiving exported files")
	flags.Bool(flagDebug, false, "Enable debug mode")
	for _, name := range []string{flagConfig, config.KeyRemote, config.KeyDataDir, config.KeyExportDir, flagDebug} {
		if err := opts.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newDownloadCmd(opts),
		newUpdateCmd(opts),
		newSyncCmd(opts),
		newCheckCmd(opts),
		newStatusCmd(opts),
		newRemoveCmd(opts),
		newHashCmd(opts),
		newVerifyCmd(opts),
		newListCmd(opts),
		newCatCmd(opts),
		newExportCmd(opts),
		newLocateCmd(),
		newServeCmd(opts),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString(flagFormat)
			if err != nil {
				return fmt.Errorf("error retrieving format flag: %w", err)
			}

			if format == formatJSON {
				return writeJSON(cmd, info)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	cmd.Flags().String(flagFormat, "", "Output format (json)")
	return cmd
}

// loadConfig reads the configuration file named by --config, if any, with flag and environment overrides
func (o *rootOptions) loadConfig() (*config.Config, error) {
	loadOpts := []config.Option{config.WithViper(o.v)}
	if path := o.v.GetString(flagConfig); path != "" {
		loadOpts = append(loadOpts, config.WithConfigPath(path))
	}
	cfg, err := config.LoadConfig(loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// withEngine opens the engine for the duration of fn
func (o *rootOptions) withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	eng, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Warn("Failed to close engine", "error", err)
		}
	}()
	return fn(eng)
}

func openEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, error) {
	auth, err := cfg.GitAuth()
	if err != nil {
		return nil, err
	}
	return engine.Open(ctx, engine.Config{
		Remote:    cfg.Remote,
		DataDir:   cfg.DataDir,
		ExportDir: cfg.ExportDir,
		Auth:      auth,
	})
}

func writeJSON(cmd *cobra.Command, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting output as JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}
