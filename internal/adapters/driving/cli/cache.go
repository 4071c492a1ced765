package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var (
	cacheCategory   string
	cacheCollection string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the answer cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached answers, newest first",
	RunE:  runCacheList,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one cached answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDelete,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all cached answers",
	RunE:  runCachePurge,
}

var cacheFeedbackCmd = &cobra.Command{
	Use:   "feedback [query] [state-hash] [up|down]",
	Short: "Record feedback on a cached answer",
	Args:  cobra.ExactArgs(3),
	RunE:  runCacheFeedback,
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheCategory, "category", "", "filter by category")
	cacheListCmd.Flags().StringVar(&cacheCollection, "collection", "", "filter by collection")
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheFeedbackCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	if cacheAdminService == nil {
		return errors.New("response cache not configured (set an API key)")
	}

	entries, err := cacheAdminService.List(cmd.Context(), cacheCategory, cacheCollection)
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("Cache is empty.")
		return nil
	}

	for _, e := range entries {
		cmd.Printf("[%d] %s\n", e.ID, e.Query)
		cmd.Printf("    %s/%s  +%d/-%d  hits:%d  %s\n",
			e.Category, e.CollectionName, e.ThumbsUp, e.ThumbsDown, e.HitCount,
			e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	if cacheAdminService == nil {
		return errors.New("response cache not configured (set an API key)")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	if err := cacheAdminService.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	cmd.Printf("Deleted entry %d\n", id)
	return nil
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	if cacheAdminService == nil {
		return errors.New("response cache not configured (set an API key)")
	}

	if err := cacheAdminService.PurgeAll(cmd.Context()); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	cmd.Println("Cache purged.")
	return nil
}

func runCacheFeedback(cmd *cobra.Command, args []string) error {
	if cacheAdminService == nil {
		return errors.New("response cache not configured (set an API key)")
	}

	var fb domain.Feedback
	switch args[2] {
	case "up":
		fb = domain.FeedbackUp
	case "down":
		fb = domain.FeedbackDown
	default:
		return fmt.Errorf("feedback must be up or down, got %q", args[2])
	}

	if err := cacheAdminService.Feedback(cmd.Context(), args[0], args[1], fb); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	cmd.Println("Feedback recorded.")
	return nil
}
