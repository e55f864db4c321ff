package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [collection]",
	Short: "Rebuild ingestion records from a collection's contents",
	Long: `Scans the documents a collection already holds and recreates missing
ingestion tracker records. Use this after the tracker database was lost
or moved; previously ingested, unchanged files then skip re-ingestion
again.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	created, err := adminService.SyncTracker(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Rebuilt %d tracker records\n", created)
	return nil
}
