package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var (
	collectionRuns   []string
	collectionModel  string
	collectionEnrich bool
	searchTopK       int
	searchJSON       bool
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage similarity collections",
	Long: `Build, search and manage embedding collections. A collection embeds the
chunks of one or more chunk runs into a flat vector index that search and
ask commands query.`,
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create [category] [name]",
	Short: "Build a collection from chunk runs",
	Long: `Embeds the chunks of the referenced runs and publishes the collection
atomically. Runs are referenced as document/run-file, e.g.:

  ragdex collection create docs handbook \
    --run report/report__pdf2md__sentence_v1__v1_0.md \
    --run intro/intro__pdf2md__sentence_v1__v1_0.md --enrich`,
	Args: cobra.ExactArgs(2),
	RunE: runCollectionCreate,
}

var collectionSearchCmd = &cobra.Command{
	Use:   "search [category] [name] [query]",
	Short: "Search a collection",
	Args:  cobra.ExactArgs(3),
	RunE:  runCollectionSearch,
}

var collectionListCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List collections in a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionList,
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete [category] [name]",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runCollectionDelete,
}

func init() {
	collectionCreateCmd.Flags().StringArrayVar(&collectionRuns, "run", nil, "chunk run as document/run-file (repeatable)")
	collectionCreateCmd.Flags().StringVarP(&collectionModel, "model", "m", "", "embedding model (default from config)")
	collectionCreateCmd.Flags().BoolVar(&collectionEnrich, "enrich", false, "summarise and tag chunks with the LLM")
	collectionSearchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 3, "number of results")
	collectionSearchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionSearchCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured (set an API key)")
	}
	if len(collectionRuns) == 0 {
		return errors.New("at least one --run is required")
	}

	runs := make([]domain.RunRef, 0, len(collectionRuns))
	for _, r := range collectionRuns {
		doc, filename, ok := strings.Cut(r, "/")
		if !ok || doc == "" || filename == "" {
			return fmt.Errorf("invalid run reference %q, expected document/run-file", r)
		}
		runs = append(runs, domain.RunRef{Document: doc, Filename: filename})
	}

	ok, message := collectionService.Create(cmd.Context(), args[0], args[1], runs, collectionModel, collectionEnrich)
	cmd.Println(message)
	if !ok {
		return errors.New("collection build failed")
	}
	return nil
}

func runCollectionSearch(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured (set an API key)")
	}

	results, err := collectionService.Search(cmd.Context(), args[0], args[1], args[2], searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, rc := range results {
		cmd.Printf("  [%d] %s (%s, distance %.4f)\n", i+1, rc.ID, rc.SourceDocument, rc.Score)
		if rc.Summary != "" {
			cmd.Printf("      Summary: %s\n", rc.Summary)
		}
		cmd.Printf("      %s\n\n", snippet(rc.Content, 200))
	}
	return nil
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured (set an API key)")
	}

	names, err := collectionService.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if len(names) == 0 {
		cmd.Println("No collections found.")
		return nil
	}
	for _, name := range names {
		cmd.Println(name)
	}
	return nil
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured (set an API key)")
	}

	if err := collectionService.Delete(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted collection %q\n", args[1])
	return nil
}

// snippet truncates text to max characters on a rune boundary.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
