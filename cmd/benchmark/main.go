package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"legalrag/config"
	"legalrag/internal/adapter/analyzer"
	"legalrag/internal/adapter/citation"
	"legalrag/internal/adapter/compressor"
	"legalrag/internal/adapter/store"
	"legalrag/internal/app"
	"legalrag/internal/domain"
	"legalrag/internal/port"
)

const previewLen = 150

func main() {
	_ = godotenv.Load()

	indexPath := flag.String("index", ".", "Path to the directory holding the index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	budget := flag.Int("budget", 0, "Context token budget (default from config)")
	caseName := flag.String("case", "", "Only search chunks of this case")
	section := flag.String("section", "", "Only search chunks of this section, e.g. HOLDING")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -index ./cases -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Retrieval quality (query vs results)")
		fmt.Println("  2. Compression ratio under the token budget")
		fmt.Println("  3. Citation preservation through compression")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Options{RootDir: *indexPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fmt.Println("LEGAL RAG BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	stats, _ := a.Store.Stats(ctx)
	fmt.Printf("Chunks indexed: %d (%s)\n", stats.Count, stats.Backend)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	matches, err := search(ctx, a.Store, *query, *caseName, *section, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Println("No matches. Run 'legalrag ingest' first.")
		os.Exit(1)
	}

	fmt.Printf("Top %d matches:\n\n", len(matches))

	totalScore := 0.0
	for i, m := range matches {
		preview := strings.ReplaceAll(truncate(m.Content, previewLen), "\n", " ")

		totalScore += m.Similarity

		rating := "LOW"
		if m.Similarity > 0.7 {
			rating = "HIGH"
		} else if m.Similarity > 0.5 {
			rating = "GOOD"
		} else if m.Similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s [%s]\n", i+1, rating, m.Similarity, filepath.Base(m.Metadata.Filename), m.Metadata.Section)
		fmt.Printf("   %s\n\n", preview)
	}

	avgScore := totalScore / float64(len(matches))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("RETRIEVAL METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", matches[0].Similarity)

	if a.Compressor == nil {
		fmt.Println("\nCompression disabled in config; skipping compression metrics.")
		return
	}

	maxTokens := cfg.Compression.MaxContextTokens
	if *budget > 0 {
		maxTokens = *budget
	}

	result, kept, total, err := compressMatches(ctx, a.Compressor, matches, *query, maxTokens)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compression error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("COMPRESSION METRICS (%s, budget %d):\n", result.Method, maxTokens)
	fmt.Printf("  %s\n", compressor.FormatStats(result))
	fmt.Printf("  Within budget:      %v\n", analyzer.EstimateTokens(result.CompressedText) <= maxTokens)
	fmt.Printf("  Citations kept:     %d/%d\n", kept, total)

	if kept == total {
		fmt.Println("  Status: GOOD - every citation survived compression")
	} else {
		fmt.Println("  Status: POOR - citations lost in compression")
	}
}

// search restricts retrieval to one case or one section when asked.
func search(ctx context.Context, st port.Store, query, caseName, section string, topK int) ([]domain.RetrievedMatch, error) {
	switch {
	case caseName != "" && section != "":
		return nil, errors.New("use either -case or -section, not both")
	case caseName != "":
		return store.SearchByCase(ctx, st, query, caseName, topK)
	case section != "":
		return store.SearchBySection(ctx, st, query, strings.ToUpper(section), topK)
	default:
		return st.Search(ctx, query, topK, nil)
	}
}

// compressMatches compresses the joined matches to maxTokens and counts
// how many distinct input citations appear in the output.
func compressMatches(ctx context.Context, c port.Compressor, matches []domain.RetrievedMatch, query string, maxTokens int) (domain.CompressionResult, int, int, error) {
	result, err := compressor.CompressToBudget(ctx, c, matches, query, maxTokens)
	if err != nil {
		return domain.CompressionResult{}, 0, 0, err
	}

	want := citation.Extract(compressor.JoinSources(matches))
	kept := 0
	for _, cite := range want {
		if strings.Contains(result.CompressedText, cite) {
			kept++
		}
	}
	return result, kept, len(want), nil
}

// truncate shortens s to at most n bytes on a rune boundary and marks the
// cut with an ellipsis.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
