package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

var (
	searchLimit     int
	searchThreshold float64
	searchDocuments []string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored chunks by semantic similarity",
	Long: `Embeds the query and ranks stored chunks by cosine similarity.
Only chunks at or above the similarity threshold are returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", domain.DefaultSearchThreshold, "minimum similarity score")
	searchCmd.Flags().StringSliceVar(&searchDocuments, "document", nil, "restrict search to these document IDs")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Limit:       searchLimit,
		Threshold:   searchThreshold,
		DocumentIDs: searchDocuments,
	}

	results, err := searchService.SearchText(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		name := results[i].DocumentFilename
		if name == "" {
			name = results[i].DocumentID
		}

		cmd.Printf("  [%d] %s #%d (%.2f)\n",
			i+1, name, results[i].ChunkIndex, results[i].SimilarityScore)
		cmd.Printf("      %s\n", snippet(results[i].Content, 120))
		cmd.Println()
	}

	return nil
}

// snippet collapses whitespace and truncates to max runes.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
