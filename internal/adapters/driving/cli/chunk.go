package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/chunkers"
)

var (
	chunkStrategy string
	chunkParams   []string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Manage chunk runs",
	Long: `Run chunking strategies over converted documents and manage the
resulting chunk-run files. Each run persists its chunks alongside the
document so collections can be rebuilt without re-chunking.`,
}

var chunkRunCmd = &cobra.Command{
	Use:   "run [category] [document] [converted-file]",
	Short: "Run a chunking strategy over a converted document",
	Long: `Executes a chunking strategy over one converted artifact and persists
the chunks as a run file under the document's chunked/ directory.

Strategy parameters are passed with --param, e.g.:
  ragdex chunk run docs report report__pdf2md__v1.md --strategy recursive_v1 \
    --param chunk_size=800 --param chunk_overlap=100`,
	Args: cobra.ExactArgs(3),
	RunE: runChunkRun,
}

var chunkDeleteCmd = &cobra.Command{
	Use:   "delete [category] [document] [run-file]",
	Short: "Delete a chunk run",
	Args:  cobra.ExactArgs(3),
	RunE:  runChunkDelete,
}

var chunkStrategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available chunking strategies",
	RunE:  runChunkStrategies,
}

func init() {
	chunkRunCmd.Flags().StringVarP(&chunkStrategy, "strategy", "s", "sentence_v1", "chunking strategy name")
	chunkRunCmd.Flags().StringArrayVar(&chunkParams, "param", nil, "strategy parameter as key=value (repeatable)")
	chunkCmd.AddCommand(chunkRunCmd)
	chunkCmd.AddCommand(chunkDeleteCmd)
	chunkCmd.AddCommand(chunkStrategiesCmd)
	rootCmd.AddCommand(chunkCmd)
}

func runChunkRun(cmd *cobra.Command, args []string) error {
	if chunkingService == nil {
		return errors.New("chunking service not configured")
	}

	cfg, err := parseParams(chunkParams)
	if err != nil {
		return err
	}

	run, err := chunkingService.Run(cmd.Context(), args[0], args[1], args[2], chunkStrategy, cfg)
	if err != nil {
		return fmt.Errorf("chunk run failed: %w", err)
	}

	cmd.Printf("Created %s (%d chunks)\n", run.Filename, run.NumChunks)
	return nil
}

func runChunkDelete(cmd *cobra.Command, args []string) error {
	if chunkingService == nil {
		return errors.New("chunking service not configured")
	}

	if err := chunkingService.DeleteRun(cmd.Context(), args[0], args[1], args[2]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted %s\n", args[2])
	return nil
}

func runChunkStrategies(cmd *cobra.Command, _ []string) error {
	if chunkingService == nil {
		return errors.New("chunking service not configured")
	}

	for _, name := range chunkingService.ListChunkers() {
		cmd.Println(name)
	}
	return nil
}

// parseParams converts key=value pairs into a strategy config, inferring
// numeric and boolean types.
func parseParams(params []string) (chunkers.Config, error) {
	if len(params) == 0 {
		return nil, nil
	}

	cfg := make(chunkers.Config, len(params))
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}

		switch {
		case value == "true" || value == "false":
			cfg[key] = value == "true"
		default:
			if i, err := strconv.Atoi(value); err == nil {
				cfg[key] = i
			} else if f, err := strconv.ParseFloat(value, 64); err == nil {
				cfg[key] = f
			} else {
				cfg[key] = value
			}
		}
	}
	return cfg, nil
}
