package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/logger"
)

// watchDebounce coalesces the write bursts editors produce when saving.
const watchDebounce = 2 * time.Second

var watchExtensions []string

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and ingest files as they change",
	Long: `Watches a directory and ingests files when they are created or
written. Each save re-ingests the whole file: existing chunks for the
document are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchExtensions, "ext",
		[]string{".txt", ".md"}, "file extensions to ingest")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watching %s: not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cmd.Printf("Watching %s (extensions: %s). Ctrl-C to stop.\n",
		dir, strings.Join(watchExtensions, ", "))

	// Tracks known document IDs per path so re-saves replace, and the time
	// of the last event per pending path. A path is ingested only once its
	// burst of events has gone quiet for watchDebounce, so the Create+Write
	// sequence editors produce lands as a single ingestion of the final
	// content.
	docIDs := make(map[string]string)
	pending := make(map[string]time.Time)

	flush := time.NewTicker(watchDebounce / 4)
	defer flush.Stop()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !watchedExtension(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case <-flush.C:
			flushPending(cmd, pending, docIDs)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher: %v", err)
		}
	}
}

// flushPending ingests every pending path whose last event is older than the
// debounce window. Paths still receiving events stay pending.
func flushPending(cmd *cobra.Command, pending map[string]time.Time, docIDs map[string]string) {
	for path, last := range pending {
		if time.Since(last) < watchDebounce {
			continue
		}
		delete(pending, path)

		if err := ingestPath(cmd, path, docIDs); err != nil {
			logger.Warn("Ingesting %s: %v", path, err)
		}
	}
}

func ingestPath(cmd *cobra.Command, path string, docIDs map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// A re-save replaces the previous ingestion of the same file.
	if id, ok := docIDs[path]; ok {
		if _, err := ingestionService.DeleteDocument(cmd.Context(), id); err != nil {
			return fmt.Errorf("replacing previous ingestion: %w", err)
		}
	}

	doc := &domain.Document{
		Filename:    filepath.Base(path),
		ContentType: contentTypeFor(path),
		Size:        int64(len(data)),
	}

	chunks, err := ingestionService.IngestDocument(cmd.Context(), doc, string(data))
	if err != nil {
		return err
	}

	docIDs[path] = doc.ID
	cmd.Printf("Ingested %s: %d chunks\n", doc.Filename, len(chunks))
	return nil
}

func watchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range watchExtensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
