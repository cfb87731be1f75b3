package app

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
)

const fileArgsUsage = "<locale> <type> <path> | <locale>/<asset path>"

// fileTarget is a file inside the working copy of a resource
type fileTarget struct {
	key  naming.ResourceKey
	path string
}

// parseFileArgs accepts either an explicit resource and path, or an asset path whose bundle is inferred
func parseFileArgs(args []string) (fileTarget, error) {
	switch len(args) {
	case 3:
		return fileTarget{key: naming.ResourceKey{Locale: args[0], Type: args[1]}, path: args[2]}, nil
	case 1:
		key, path, ok := naming.KeyForAssetPath(args[0])
		if !ok {
			return fileTarget{}, fmt.Errorf("cannot map asset path %q to a resource", args[0])
		}
		return fileTarget{key: key, path: path}, nil
	default:
		return fileTarget{}, fmt.Errorf("expected %s, got %d arguments", fileArgsUsage, len(args))
	}
}

func fileArgs(_ *cobra.Command, args []string) error {
	_, err := parseFileArgs(args)
	return err
}

func newHashCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash " + fileArgsUsage,
		Short: "Print the content digest of a downloaded file",
		Args:  fileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := parseFileArgs(args)
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				dgst, err := eng.FileHash(target.path, target.key.Locale, target.key.Type)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), dgst)
				return err
			})
		},
	}
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify " + fileArgsUsage + " <digest>",
		Short: "Check a downloaded file against an expected digest",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("expected %s <digest>", fileArgsUsage)
			}
			return fileArgs(cmd, args[:len(args)-1])
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := parseFileArgs(args[:len(args)-1])
			expected, err := digest.Parse(args[len(args)-1])
			if err != nil {
				return fmt.Errorf("invalid digest: %w", err)
			}
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				if err := eng.Verify(target.path, target.key.Locale, target.key.Type, expected); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", target.path)
				return err
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls <locale> <type> [path]",
		Aliases: []string{"tree"},
		Short:   "List a directory of a downloaded resource",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := naming.ResourceKey{Locale: args[0], Type: args[1]}
			dir := ""
			if len(args) == 3 {
				dir = strings.Trim(args[2], "/")
			}
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				entries, err := eng.ContentsOfDirectory(dir, key.Locale, key.Type)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), entry); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat " + fileArgsUsage,
		Short: "Write the bytes of a downloaded file to stdout",
		Args:  fileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := parseFileArgs(args)
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				data, err := eng.FileData(target.path, target.key.Locale, target.key.Type)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export " + fileArgsUsage,
		Short: "Copy a downloaded file to the export directory and print its location",
		Args:  fileArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := parseFileArgs(args)
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				exported, err := eng.ExportFile(target.path, target.key.Locale, target.key.Type)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), exported)
				return err
			})
		},
	}
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <locale>/<asset path>",
		Short: "Print the resource bundle that carries an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseFileArgs(args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", target.key, target.path)
			return err
		},
	}
}
