package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"legalrag/internal/adapter/compressor"
	"legalrag/internal/adapter/lingua"
	"legalrag/internal/logging"
	"legalrag/internal/port"
)

var (
	compressBudget   int
	compressQuery    string
	compressStrategy string
	compressJSON     bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <file>",
	Short: "Compress a text file to a token budget",
	Long: `Compress a text file the same way retrieved context is compressed before
generation. Citations are kept verbatim.

Examples:
  legalrag compress opinion.txt --budget 500
  legalrag compress opinion.txt -q "standing" --strategy extractive`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().IntVarP(&compressBudget, "budget", "b", 0, "maximum output tokens (default from config)")
	compressCmd.Flags().StringVarP(&compressQuery, "query", "q", "", "question used to score sentences")
	compressCmd.Flags().StringVar(&compressStrategy, "strategy", "", "auto, model or extractive (default from config)")
	compressCmd.Flags().BoolVar(&compressJSON, "json", false, "output as JSON")
}

func runCompress(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	strategy := cfg.Compression.Strategy
	if compressStrategy != "" {
		strategy = compressStrategy
	}
	budget := cfg.Compression.MaxContextTokens
	if compressBudget > 0 {
		budget = compressBudget
	}

	var model port.CompressionModel
	if cfg.Compression.ServiceURL != "" {
		model = lingua.NewClient(cfg.Compression.ServiceURL, time.Duration(cfg.Compression.TimeoutSecs)*time.Second)
	}
	selection := compressor.Select(cmd.Context(), compressor.SelectOptions{
		Strategy:    strategy,
		TargetRatio: cfg.Compression.TargetRatio,
		ForceKeep:   cfg.Compression.ForceTokens,
		Model:       model,
		Logger:      logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format),
	})

	result, err := compressor.FitToBudget(cmd.Context(), selection.Compressor(), string(data), compressQuery, budget)
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	if compressJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(result.CompressedText)
	fmt.Println()
	fmt.Printf("%s [%s]\n", compressor.FormatStats(result), result.Method)
	if len(result.PreservedCitations) > 0 {
		fmt.Printf("Citations preserved: %s\n", strings.Join(result.PreservedCitations, "; "))
	}
	return nil
}
