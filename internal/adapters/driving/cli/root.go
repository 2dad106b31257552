// Package cli provides the kiro command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driving"
	"github.com/jazz-17/kiro-chatbot/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services the commands depend on. Injected by main (or by tests).
var (
	ingestionService driving.IngestionService
	searchService    driving.SearchService
	documentStore    driven.DocumentStore
	indexMaintainer  driven.IndexMaintainer

	cleanup func() error
)

var (
	verbose   bool
	configDir string
)

// Services groups everything the commands need.
type Services struct {
	Ingestion  driving.IngestionService
	Search     driving.SearchService
	Documents  driven.DocumentStore
	Maintainer driven.IndexMaintainer

	// Cleanup is called after the command finishes.
	Cleanup func() error
}

// Initializer builds the services once flags are parsed, so --config is
// honored before anything opens the database.
type Initializer func(configDir string) (*Services, error)

var initServices Initializer

// SetInitializer registers the service factory used on first command run.
func SetInitializer(fn Initializer) {
	initServices = fn
}

// SetServices injects the services directly, bypassing the initializer.
func SetServices(s Services) {
	ingestionService = s.Ingestion
	searchService = s.Search
	documentStore = s.Documents
	indexMaintainer = s.Maintainer
	cleanup = s.Cleanup
}

var rootCmd = &cobra.Command{
	Use:   "kiro",
	Short: "Local retrieval backend for document search",
	Long: `Kiro ingests documents into embedded chunks and retrieves them by
vector similarity. Documents are split with overlap, embedded through a
configurable provider, and stored in a local SQLite database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		if searchService != nil || initServices == nil {
			return nil
		}
		svcs, err := initServices(configDir)
		if err != nil {
			return err
		}
		SetServices(*svcs)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.kiro)")
}

// Execute runs the root command and releases held resources afterwards.
func Execute() error {
	defer func() {
		if cleanup != nil {
			cleanup() //nolint:errcheck
		}
	}()
	return rootCmd.Execute()
}
