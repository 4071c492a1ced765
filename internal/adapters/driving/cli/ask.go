package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var (
	askTopK        int
	askFilter      string
	askThreshold   float64
	askRewrite     bool
	askRerank      bool
	askRerankTopN  int
	askTemperature float64
	askMaxTokens   int
	askFeedback    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [category] [collection] [question]",
	Short: "Ask a question against a collection",
	Long: `Runs the retrieval pipeline: checks the answer cache, retrieves the most
relevant chunks, streams a generated answer and records it for reuse.

The cache filter controls which prior answers may be served:
  only_positive - only answers with positive and no negative feedback
  pos_gt_neg    - answers with more positive than negative feedback
  any           - the most recent answer regardless of feedback`,
	Args: cobra.ExactArgs(3),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 3, "number of chunks to retrieve")
	askCmd.Flags().StringVar(&askFilter, "filter", string(domain.FilterOnlyPositive), "cache filter mode")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0.95, "similarity threshold for approximate cache hits (>= 1 disables)")
	askCmd.Flags().BoolVar(&askRewrite, "rewrite", false, "rewrite the question for retrieval")
	askCmd.Flags().BoolVar(&askRerank, "rerank", false, "re-rank retrieved chunks with the LLM")
	askCmd.Flags().IntVar(&askRerankTopN, "rerank-top-n", 3, "chunks to keep after re-ranking")
	askCmd.Flags().Float64Var(&askTemperature, "temperature", 0, "generation temperature")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "generation token limit (0 = provider default)")
	askCmd.Flags().BoolVar(&askFeedback, "feedback", false, "prompt for feedback after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errors.New("ask service not configured (set an API key)")
	}

	filter := domain.FilterMode(askFilter)
	switch filter {
	case domain.FilterOnlyPositive, domain.FilterPosGtNeg, domain.FilterAny:
	default:
		return fmt.Errorf("unknown filter mode %q", askFilter)
	}

	ctx := cmd.Context()

	// Prompt edits take effect mid-stream for long generations.
	if err := promptStore.Watch(ctx); err != nil {
		return fmt.Errorf("watch prompts: %w", err)
	}

	req := domain.AskRequest{
		Category:            args[0],
		Collection:          args[1],
		Query:               args[2],
		TopK:                askTopK,
		FilterMode:          filter,
		SimilarityThreshold: askThreshold,
		Rewrite:             askRewrite,
		Rerank:              askRerank,
		RerankTopN:          askRerankTopN,
		Temperature:         askTemperature,
		MaxTokens:           askMaxTokens,
	}

	var stateHash string
	answered := false
	for event := range askService.AnswerStream(ctx, req) {
		switch event.Type {
		case domain.EventState:
			stateHash = event.Content
		case domain.EventCachedAnswer:
			cmd.Printf("(cached answer, similarity %.2f)\n\n", event.Similarity)
			cmd.Println(event.Content)
			answered = true
		case domain.EventRewrite:
			cmd.Printf("(searching for: %s)\n\n", event.Content)
		case domain.EventPlausibleSources:
			// Shown only in verbose runs via the pipeline logs.
		case domain.EventAnswerDelta:
			cmd.Print(event.Content)
			answered = true
		case domain.EventSources:
			cmd.Println()
			printSources(cmd, event.Sources)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if askFeedback && answered && stateHash != "" {
		return collectFeedback(cmd, args[2], stateHash)
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.RetrievedChunk) {
	if len(sources) == 0 {
		return
	}
	cmd.Println("\nSources:")
	for i, rc := range sources {
		cmd.Printf("  [%d] %s (%s, distance %.4f)\n", i+1, rc.ID, rc.SourceDocument, rc.Score)
	}
}

// collectFeedback asks for a verdict on the answer and records it against
// the state the answer was produced under.
func collectFeedback(cmd *cobra.Command, query, stateHash string) error {
	cmd.Print("\nWas this answer helpful? [y/n/skip]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil // Non-interactive session, skip silently.
	}

	var fb domain.Feedback
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		fb = domain.FeedbackUp
	case "n", "no":
		fb = domain.FeedbackDown
	default:
		return nil
	}

	if err := askService.Feedback(cmd.Context(), query, stateHash, fb); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	cmd.Println("Feedback recorded.")
	return nil
}
