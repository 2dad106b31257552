package cli

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Chunk, embed, and store a document",
	Long: `Reads a text file, splits it into overlapping chunks, embeds each
chunk, and stores everything in the local database. The whole document is
stored atomically: on failure no chunks remain.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc := &domain.Document{
		Filename:    filepath.Base(path),
		ContentType: contentTypeFor(path),
		Size:        int64(len(data)),
	}

	chunks, err := ingestionService.IngestDocument(cmd.Context(), doc, string(data))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %s: %d chunks (document %s)\n", doc.Filename, len(chunks), doc.ID)
	return nil
}

// contentTypeFor guesses the MIME type from the file extension.
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "text/plain"
}
