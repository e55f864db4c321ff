package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "list-collections",
	Short: "List collections and their chunk counts",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, _ []string) error {
	if adminService == nil {
		return errors.New("admin service not configured")
	}

	infos, err := adminService.ListCollections(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		cmd.Println("No collections yet.")
		return nil
	}

	for _, info := range infos {
		cmd.Printf("%-24s %6d chunks (dim %d)\n", info.Name, info.Chunks, info.Dimension)
	}
	return nil
}
