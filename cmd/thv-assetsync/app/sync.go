package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
)

// signalContext is cancelled on SIGINT or SIGTERM so an interrupted transfer leaves the working copy untouched
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download <locale> <type>",
		Short: "Clone the bundle of a resource into the data directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			return opts.withEngine(ctx, func(eng *engine.Engine) error {
				key := naming.ResourceKey{Locale: args[0], Type: args[1]}
				onProgress, done := newProgress("Downloading " + key.String())
				err := eng.Download(ctx, key.Locale, key.Type, onProgress)
				done()
				if err != nil {
					return err
				}
				return printRecord(cmd, eng, key, "downloaded")
			})
		},
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <locale> <type>",
		Short: "Fetch and check out the tip of a downloaded resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts, args, func(
				ctx context.Context, eng *engine.Engine, key naming.ResourceKey, onProgress git.ProgressFunc,
			) (engine.UpdateStatus, error) {
				return eng.Update(ctx, key.Locale, key.Type, onProgress)
			})
		},
	}
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <locale> <type>",
		Short: "Download a resource, or update it when it is already downloaded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts, args, func(
				ctx context.Context, eng *engine.Engine, key naming.ResourceKey, onProgress git.ProgressFunc,
			) (engine.UpdateStatus, error) {
				return eng.Sync(ctx, key.Locale, key.Type, onProgress)
			})
		},
	}
}

type updateFunc func(
	ctx context.Context, eng *engine.Engine, key naming.ResourceKey, onProgress git.ProgressFunc,
) (engine.UpdateStatus, error)

func runUpdate(cmd *cobra.Command, opts *rootOptions, args []string, update updateFunc) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	return opts.withEngine(ctx, func(eng *engine.Engine) error {
		key := naming.ResourceKey{Locale: args[0], Type: args[1]}
		onProgress, done := newProgress("Updating " + key.String())
		status, err := update(ctx, eng, key, onProgress)
		done()
		if err != nil {
			return err
		}
		if status == engine.UpdateStatusUpToDate {
			return printRecord(cmd, eng, key, "already up to date")
		}
		return printRecord(cmd, eng, key, "updated")
	})
}

func printRecord(cmd *cobra.Command, eng *engine.Engine, key naming.ResourceKey, outcome string) error {
	record, err := eng.Record(key.Locale, key.Type)
	if err != nil {
		return err
	}
	revision := ""
	if record != nil {
		revision = record.Revision
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s\n", key, outcome, revision)
	return err
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <locale> <type>",
		Short: "Report whether the remote branch of a resource moved past the local revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			return opts.withEngine(ctx, func(eng *engine.Engine) error {
				key := naming.ResourceKey{Locale: args[0], Type: args[1]}
				result, err := eng.CheckForUpdate(ctx, key.Locale, key.Type)
				if err != nil {
					return err
				}

				if format, _ := cmd.Flags().GetString(flagFormat); format == formatJSON {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				switch {
				case !result.HasLocal():
					_, err = fmt.Fprintf(out, "%s is not downloaded; remote is at %s\n", key, result.RemoteSHA)
				case result.IsUpdateAvailable:
					_, err = fmt.Fprintf(out, "%s has an update: %s -> %s\n", key, result.LocalSHA, result.RemoteSHA)
				default:
					_, err = fmt.Fprintf(out, "%s is up to date at %s\n", key, result.LocalSHA)
				}
				return err
			})
		},
	}
	cmd.Flags().String(flagFormat, "", "Output format (json)")
	return cmd
}
