package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/mddb/internal/version"
)

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Write a database snapshot on the server",
		Long:  `Write a snapshot on the server. Without a name the server picks backup-<unix>.db.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := ""
			if len(args) == 1 {
				to = args[0]
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Backup(cmd.Context(), to)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s\n", res.Backup)
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the server database with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			path, err := c.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), map[string]string{"restored": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored from: %s\n", path)
			return nil
		},
	}
}

func newTruncateCmd(a *app) *cobra.Command {
	var (
		keep      int
		dropCache bool
	)

	cmd := &cobra.Command{
		Use:   "truncate <collection>",
		Short: "Drop old revisions of every document in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			removed, err := c.Truncate(cmd.Context(), args[0], keep, dropCache)
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"collection": args[0], "keep_revs": keep, "removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Truncated %s to %d revisions: %d removed\n", args[0], keep, removed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&keep, "keep", "k", 5, "Revisions to keep per document")
	cmd.Flags().BoolVarP(&dropCache, "drop-cache", "d", true, "Flush the server document cache")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, st)
			}
			fmt.Fprintf(out, "Database: %s (%d bytes, mode %s)\n", st.DatabasePath, st.DatabaseSize, st.Mode)
			fmt.Fprintf(out, "Uptime:   %s\n", st.Uptime)
			fmt.Fprintf(out, "Totals:   %d documents, %d revisions, %d meta indices\n",
				st.TotalDocuments, st.TotalRevisions, st.TotalMetaIndices)
			if len(st.Collections) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nCollections:")
			for _, col := range st.Collections {
				fmt.Fprintf(out, "  %-24s %6d docs %6d revs %6d meta\n",
					col.Name, col.DocumentCount, col.RevisionCount, col.MetaIndexCount)
			}
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			hs, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				if err := printJSON(out, hs); err != nil {
					return err
				}
			} else {
				checks := make([]string, 0, len(hs.Checks))
				for _, name := range slices.Sorted(maps.Keys(hs.Checks)) {
					checks = append(checks, name+"="+hs.Checks[name])
				}
				fmt.Fprintf(out, "Status: %s (mode %s) %s\n", hs.Status, hs.Mode, strings.Join(checks, " "))
			}
			if hs.Status == "error" {
				return fmt.Errorf("server is unhealthy")
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mddb version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mddb %s\n", version.String())
		},
	}
}
