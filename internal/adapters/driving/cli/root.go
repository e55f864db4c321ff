// Package cli implements the sowdata command line interface.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
	"github.com/terasky-int/sow-dataset/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by main before Execute.
var (
	ingestor      driving.Ingestor
	answerService driving.AnswerService
	adminService  driving.CollectionAdmin
)

var (
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "sowdata",
	Short: "Ingest documents and answer questions over them",
	Long: `sowdata ingests client documents (PDF, DOCX, XLSX, PPTX, text) into
vector collections and answers natural-language questions grounded in
the ingested content.

Metadata is derived from the folder layout (client/year/project) and
documents are routed to collections by category.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
}

// SetServices injects the service implementations. Called by main
// after configuration is loaded.
func SetServices(ing driving.Ingestor, ans driving.AnswerService, adm driving.CollectionAdmin) {
	ingestor = ing
	answerService = ans
	adminService = adm
}

// ConfigPath returns the --config flag value. Main reads it before
// building services, so flag parsing happens in two passes.
func ConfigPath(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context, so long-running
// commands like watch stop on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// parseFields turns repeated key=value flags into a metadata override
// map.
func parseFields(fields []string) (map[string]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", field)
		}
		out[key] = value
	}
	return out, nil
}
