package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

func newAddCmd(a *app) *cobra.Command {
	var file, meta string

	cmd := &cobra.Command{
		Use:   "add <collection> <key> <lang>",
		Short: "Add or update a document",
		Long:  `Add or update a markdown document. Content is read from --file or stdin.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMeta(meta)
			if err != nil {
				return err
			}

			var content []byte
			if file != "" {
				content, err = os.ReadFile(file)
			} else {
				content, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			doc, err := c.Add(cmd.Context(), args[0], args[1], args[2], m, string(content))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, doc)
			}
			fmt.Fprintf(out, "Document added: %s\n", doc.ID)
			fmt.Fprintf(out, "  Added:   %s\n", formatUnix(doc.AddedAt))
			fmt.Fprintf(out, "  Updated: %s\n", formatUnix(doc.UpdatedAt))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file instead of stdin")
	cmd.Flags().StringVarP(&meta, "meta", "m", "", "Metadata: key=val1|val2,key2=val")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var env string
	var contentOnly bool

	cmd := &cobra.Command{
		Use:   "get <collection> <key> <lang>",
		Short: "Get a document",
		Long:  `Retrieve a document. %%name%% placeholders are filled from --env.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseEnv(env)
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			doc, err := c.Get(cmd.Context(), args[0], args[1], args[2], vars)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case contentOnly:
				_, err = io.WriteString(out, doc.ContentMD)
				return err
			case a.json:
				return printJSON(out, doc)
			}
			printDocument(out, doc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&env, "env", "e", "", "Template variables: key=val,key2=val2")
	cmd.Flags().BoolVarP(&contentOnly, "content-only", "c", false, "Output only the content")
	return cmd
}

func printDocument(w io.Writer, doc mddb.Document) {
	fmt.Fprintf(w, "ID:      %s\n", doc.ID)
	fmt.Fprintf(w, "Key:     %s\n", doc.Key)
	fmt.Fprintf(w, "Lang:    %s\n", doc.Lang)
	fmt.Fprintf(w, "Added:   %s\n", formatUnix(doc.AddedAt))
	fmt.Fprintf(w, "Updated: %s\n", formatUnix(doc.UpdatedAt))
	if len(doc.Meta) > 0 {
		fmt.Fprintf(w, "Meta:    %s\n", formatMeta(doc.Meta))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintln(w, doc.ContentMD)
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <key> <lang>",
		Short: "Delete a document with its revisions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Delete(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, map[string]string{
					"status": "deleted", "collection": args[0], "key": args[1], "lang": args[2],
				})
			}
			fmt.Fprintf(out, "Document deleted: %s/%s/%s\n", args[0], args[1], args[2])
			return nil
		},
	}
}

func newDeleteCollectionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-collection <collection>",
		Short: "Delete every document of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.DeleteCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, map[string]any{"collection": args[0], "deleted_count": n})
			}
			fmt.Fprintf(out, "Collection %s deleted: %d documents\n", args[0], n)
			return nil
		},
	}
}

func newRevisionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <collection> <key> <lang>",
		Short: "List stored revisions of a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			revs, err := c.Revisions(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, revs)
			}
			fmt.Fprintf(out, "%d revisions:\n", len(revs))
			for i, r := range revs {
				fmt.Fprintf(out, "%d. %s (%d bytes)\n", i+1, formatUnix(r.UpdatedAt), len(r.ContentMD))
			}
			return nil
		},
	}
}
