package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var metadataFields []string

var updateMetadataCmd = &cobra.Command{
	Use:   "update-metadata [path]",
	Short: "Re-resolve and rewrite metadata for an ingested document",
	Long: `Re-runs metadata resolution for an already-ingested document and
rewrites the stored metadata on its chunks. Nothing is re-extracted or
re-embedded. Overrides given with --field win over derived values.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdateMetadata,
}

func init() {
	updateMetadataCmd.Flags().StringArrayVar(&metadataFields, "field", nil, "metadata override as key=value (repeatable)")
	rootCmd.AddCommand(updateMetadataCmd)
}

func runUpdateMetadata(cmd *cobra.Command, args []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	overrides, err := parseFields(metadataFields)
	if err != nil {
		return err
	}

	n, err := adminService.UpdateMetadata(cmd.Context(), args[0], overrides)
	if err != nil {
		return err
	}
	cmd.Printf("Updated metadata on %d chunks\n", n)
	return nil
}
