package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

// app carries the persistent flags shared by every command.
type app struct {
	server  string
	apiKey  string
	timeout time.Duration
	json    bool
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	root := &cobra.Command{
		Use:   "mddb",
		Short: "Command-line client for the MDDB markdown document server",
		Long: `mddb manages markdown documents stored in an MDDB server.
Documents live in collections and are addressed by key and language.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	defServer := os.Getenv("MDDB_URL")
	if defServer == "" {
		defServer = mddb.DefaultEndpoint
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.server, "server", "s", defServer, "MDDB server URL (env MDDB_URL)")
	pf.StringVar(&a.apiKey, "api-key", os.Getenv("MDDB_API_KEY"), "API key (env MDDB_API_KEY)")
	pf.DurationVar(&a.timeout, "timeout", mddb.DefaultTimeout, "Request timeout")
	pf.BoolVarP(&a.json, "json", "j", false, "Output raw JSON")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newAddCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newDeleteCollectionCmd(a),
		newRevisionsCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newTruncateCmd(a),
		newStatsCmd(a),
		newHealthCmd(a),
		newVersionCmd(),
	)
	return root
}

// client connects without a readiness wait: every command is a single call.
func (a *app) client(ctx context.Context) (*mddb.Client, error) {
	a.logger.Debug("connecting", "server", a.server)
	return mddb.New(ctx,
		mddb.WithEndpoint(a.server),
		mddb.WithAPIKey(a.apiKey),
		mddb.WithTimeout(a.timeout),
		mddb.WithReadinessTimeout(0),
		mddb.WithLogger(a.logger),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
