package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

var queryCollections []string

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question over ingested documents",
	Long: `Retrieves the most relevant chunks from the scoped collections and
generates an answer grounded in them. Without --collection every known
collection is searched.

When nothing relevant is found the model is not invoked and the command
says so instead of guessing.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryCollections, "collection", "c", nil, "collection(s) to search (repeatable)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]

	if answerService == nil {
		return errors.New("answer service not configured")
	}

	answer, err := answerService.Answer(cmd.Context(), question, queryCollections)
	if err != nil {
		if answer != nil && answer.State == domain.AnswerNoContent {
			cmd.Println("No relevant content found for this question.")
			return nil
		}
		return err
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, src := range answer.Sources {
			cmd.Printf("  %s\n", src)
		}
	}
	return nil
}
