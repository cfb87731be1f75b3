package app

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-assetsync/internal/engine"
)

// shortRevisionLength is how much of a revision the status table shows
const shortRevisionLength = 12

func newStatusCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"list"},
		Short:   "List every downloaded resource with its recorded revision",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				records, err := eng.List(cmd.Context())
				if err != nil {
					return err
				}

				if format, _ := cmd.Flags().GetString(flagFormat); format == formatJSON {
					return writeJSON(cmd, records)
				}

				if len(records) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No resources downloaded")
					return err
				}

				rows := make([][]string, 0, len(records))
				for _, r := range records {
					rows = append(rows, []string{
						r.Locale,
						r.Type,
						shortRevision(r.Revision),
						r.UpdatedAt.Local().Format(time.DateTime),
					})
				}

				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.Header("LOCALE", "TYPE", "REVISION", "UPDATED")
				if err := table.Bulk(rows); err != nil {
					return fmt.Errorf("failed to build status table: %w", err)
				}
				return table.Render()
			})
		},
	}
	cmd.Flags().String(flagFormat, "", "Output format (json)")
	return cmd
}

func shortRevision(revision string) string {
	if len(revision) > shortRevisionLength {
		return revision[:shortRevisionLength]
	}
	return revision
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <locale> <type>",
		Aliases: []string{"rm"},
		Short:   "Delete the working copy and revision record of a resource",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				if err := eng.Remove(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s/%s removed\n", args[0], args[1])
				return err
			})
		},
	}
}
