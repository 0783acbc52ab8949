package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/mddb/internal/markdown"
	mddb "github.com/kailas-cloud/mddb/pkg/sdk"
)

const watchDebounce = 200 * time.Millisecond

type importer struct {
	client     *mddb.Client
	collection string
	pattern    string
	lang       string
	batchSize  int
	revisions  bool
	out        io.Writer
	logger     *slog.Logger
}

func newImportCmd(a *app) *cobra.Command {
	imp := &importer{}
	var watch bool

	cmd := &cobra.Command{
		Use:   "import <collection> <glob>",
		Short: "Import markdown files with YAML frontmatter",
		Long: `Import every file matching a glob ("docs/**/*.md"). Frontmatter becomes
metadata. The file name is the key; a ".<lang>" suffix (guide.de.md) sets the
language, otherwise --lang is used. With --watch changed files are re-imported
until interrupted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !doublestar.ValidatePathPattern(args[1]) {
				return fmt.Errorf("invalid glob %q", args[1])
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			imp.client = c
			imp.collection = args[0]
			imp.pattern = filepath.Clean(args[1])
			imp.out = cmd.OutOrStdout()
			imp.logger = a.logger

			files, err := matchFiles(imp.pattern)
			if err != nil {
				return err
			}
			res, err := imp.importFiles(cmd.Context(), files)
			if err != nil {
				return err
			}
			if a.json {
				if err := printJSON(imp.out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(imp.out, "Imported %d files: %d added, %d updated, %d failed\n",
					len(files), res.Added, res.Updated, res.Failed)
				for _, e := range res.Errors {
					fmt.Fprintf(imp.out, "  %s\n", e)
				}
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(imp.out, "Watching %s (Ctrl+C to stop)\n", imp.pattern)
			return imp.watch(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&imp.lang, "lang", "en", "Language for files without a .<lang> suffix")
	f.IntVar(&imp.batchSize, "batch-size", 100, "Documents per batch request")
	f.BoolVar(&imp.revisions, "revisions", true, "Save a revision for every imported document")
	f.BoolVarP(&watch, "watch", "w", false, "Keep watching and re-import changed files")
	return cmd
}

// matchFiles expands a doublestar pattern to regular files, sorted.
func matchFiles(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}

// loadFile reads one markdown file into a batch item.
func (imp *importer) loadFile(path string) (mddb.BatchDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mddb.BatchDocument{}, err
	}
	f, err := markdown.Parse(data)
	if err != nil {
		return mddb.BatchDocument{}, fmt.Errorf("%s: %w", path, err)
	}
	key, lang := markdown.KeyLang(path, imp.lang)
	return mddb.BatchDocument{
		Key:          key,
		Lang:         lang,
		Meta:         f.Meta,
		ContentMD:    f.Body,
		SaveRevision: imp.revisions,
	}, nil
}

// importFiles sends files in batches. Unreadable files count as failed and do not stop the import.
func (imp *importer) importFiles(ctx context.Context, files []string) (mddb.BatchResult, error) {
	total := mddb.BatchResult{Errors: []string{}}
	size := max(imp.batchSize, 1)

	for chunk := range slices.Chunk(files, size) {
		docs := make([]mddb.BatchDocument, 0, len(chunk))
		for _, path := range chunk {
			doc, err := imp.loadFile(path)
			if err != nil {
				imp.logger.Warn("skip file", "path", path, "error", err)
				total.Failed++
				total.Errors = append(total.Errors, err.Error())
				continue
			}
			docs = append(docs, doc)
		}
		if len(docs) == 0 {
			continue
		}

		res, err := imp.client.AddBatch(ctx, imp.collection, docs)
		if err != nil {
			return total, err
		}
		imp.logger.Debug("batch sent", "documents", len(docs), "added", res.Added, "updated", res.Updated)
		total.Added += res.Added
		total.Updated += res.Updated
		total.Failed += res.Failed
		total.Errors = append(total.Errors, res.Errors...)
		total.Results = append(total.Results, res.Results...)
	}
	return total, nil
}

// watchDirs lists the directories that can hold matches: the static base of
// the pattern and every directory below it.
func watchDirs(pattern string) ([]string, error) {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)

	var dirs []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", base, err)
	}
	return dirs, nil
}

// watch re-imports matching files on change until ctx is done.
func (imp *importer) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	dirs, err := watchDirs(imp.pattern)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					// новый каталог под базой шаблона
					_ = w.Add(ev.Name)
					continue
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(ev.Name)
			if ok, _ := doublestar.PathMatch(imp.pattern, name); !ok {
				continue
			}
			imp.logger.Debug("file changed", "path", name, "op", ev.Op.String())
			pending[name] = struct{}{}
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			imp.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			files := make([]string, 0, len(pending))
			for p := range pending {
				files = append(files, p)
			}
			clear(pending)
			slices.Sort(files)

			res, err := imp.importFiles(ctx, files)
			if err != nil {
				imp.logger.Warn("re-import failed", "error", err)
				continue
			}
			fmt.Fprintf(imp.out, "Re-imported %d files: %d added, %d updated, %d failed\n",
				len(files), res.Added, res.Updated, res.Failed)
		}
	}
}
