package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		filter string
		req    mddb.SearchRequest
	)

	cmd := &cobra.Command{
		Use:   "search <collection>",
		Short: "Search documents by metadata",
		Long: `Search documents of a collection. Filter keys are ANDed,
values of one key are ORed: -f "type=guide|faq,lang=go".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := parseMeta(filter)
			if err != nil {
				return err
			}
			req.Collection = args[0]
			req.FilterMeta = fm

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, res)
			}
			fmt.Fprintf(out, "Found %d documents (showing %d from offset %d):\n\n", res.Total, len(res.Documents), res.Offset)
			for i, doc := range res.Documents {
				fmt.Fprintf(out, "%d. %s (%s)\n", res.Offset+i+1, doc.Key, doc.Lang)
				fmt.Fprintf(out, "   ID: %s\n", doc.ID)
				fmt.Fprintf(out, "   Updated: %s\n", formatUnix(doc.UpdatedAt))
				if len(doc.Meta) > 0 {
					fmt.Fprintf(out, "   Meta: %s\n", formatMeta(doc.Meta))
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&filter, "filter", "f", "", "Filter by metadata: key=val1|val2,key2=val")
	f.StringVarP(&req.Sort, "sort", "S", mddb.SortUpdatedAt, "Sort field: addedAt, updatedAt, key")
	f.BoolVarP(&req.Asc, "asc", "a", false, "Sort ascending (default: descending)")
	f.IntVarP(&req.Limit, "limit", "l", 50, "Limit results")
	f.IntVarP(&req.Offset, "offset", "o", 0, "Offset results")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var filter, format, output string

	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export documents as NDJSON or ZIP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := parseMeta(filter)
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			rc, err := c.Export(cmd.Context(), mddb.ExportRequest{
				Collection: args[0],
				FilterMeta: fm,
				Format:     format,
			})
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			if output == "" {
				_, err = io.Copy(cmd.OutOrStdout(), rc)
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			n, err := io.Copy(f, rc)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Debug("export written", "file", output, "bytes", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Filter by metadata: key=val1|val2,key2=val")
	cmd.Flags().StringVarP(&format, "format", "F", mddb.FormatNDJSON, "Export format: ndjson or zip")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
