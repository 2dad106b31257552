package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
	Long:  `Rebuild the partition index or inspect its statistics.`,
}

var indexOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Rebuild the vector index for the current data size",
	Long: `Recomputes the index partitioning from the number of stored chunks
and reassigns every chunk. Run after bulk ingestion or deletion.`,
	RunE: runIndexOptimize,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runIndexStats,
}

func init() {
	indexCmd.AddCommand(indexOptimizeCmd)
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexOptimize(cmd *cobra.Command, _ []string) error {
	if indexMaintainer == nil {
		return errors.New("index maintainer not configured")
	}

	built, err := indexMaintainer.Optimize(cmd.Context())
	if err != nil {
		return fmt.Errorf("optimize failed: %w", err)
	}

	if !built {
		cmd.Println("No chunks stored, index cleared.")
		return nil
	}
	cmd.Println("Index rebuilt.")
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if indexMaintainer == nil {
		return errors.New("index maintainer not configured")
	}

	stats, err := indexMaintainer.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	cmd.Printf("Chunks:     %d\n", stats.TotalChunks)
	cmd.Printf("Dimension:  %d\n", stats.EmbeddingDimension)
	cmd.Printf("Lists:      %d\n", stats.Lists)
	cmd.Printf("Index size: %s\n", formatBytes(stats.IndexSize))
	cmd.Printf("Table size: %s\n", formatBytes(stats.TableSize))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
