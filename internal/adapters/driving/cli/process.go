package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
)

var (
	processRecursive bool
	processForce     bool
	processFilter    string
	processFields    []string
)

var processCmd = &cobra.Command{
	Use:   "process [path]",
	Short: "Ingest a file or folder into the vector store",
	Long: `Extracts text from the given file or folder, splits it into chunks,
derives metadata from the folder layout and upserts the chunks into the
collection matching each document's category.

Unchanged files (same content fingerprint) are skipped unless --force
is given. Folder ingestion is best-effort: a failed file is reported
and the rest of the batch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVarP(&processRecursive, "recursive", "r", false, "descend into subfolders")
	processCmd.Flags().BoolVar(&processForce, "force", false, "re-ingest files even when unchanged")
	processCmd.Flags().StringVar(&processFilter, "filter", "", "only process files whose name contains this string")
	processCmd.Flags().StringArrayVar(&processFields, "field", nil, "metadata override as key=value (repeatable)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	path := args[0]

	if ingestor == nil {
		return errors.New("ingest service not configured")
	}

	overrides, err := parseFields(processFields)
	if err != nil {
		return err
	}
	opts := driving.FolderOptions{
		Recursive:  processRecursive,
		Force:      processForce,
		NameFilter: processFilter,
		Overrides:  overrides,
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	ctx := cmd.Context()
	if info.IsDir() {
		report, err := ingestor.IngestFolder(ctx, path, opts)
		if err != nil {
			return fmt.Errorf("process folder: %w", err)
		}
		printReport(cmd, report)
		return nil
	}

	result, err := ingestor.IngestFile(ctx, path, opts)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}
	printResult(cmd, result)
	return nil
}

func printResult(cmd *cobra.Command, res driving.FileResult) {
	switch res.Status {
	case driving.StatusIngested:
		cmd.Printf("Ingested %s: %d chunks into %s\n", res.Path, res.Chunks, res.Collection)
	case driving.StatusUnchanged:
		cmd.Printf("Unchanged %s (already in %s)\n", res.Path, res.Collection)
	case driving.StatusEmpty:
		cmd.Printf("No text in %s, nothing stored\n", res.Path)
	default:
		cmd.Printf("Skipped %s: %v\n", res.Path, res.Err)
	}
}

func printReport(cmd *cobra.Command, report *driving.Report) {
	for _, res := range report.Results {
		printResult(cmd, res)
	}
	ingested, skipped, failed := report.Counts()
	cmd.Println()
	cmd.Printf("Done: %d ingested, %d skipped, %d failed\n", ingested, skipped, failed)
}
