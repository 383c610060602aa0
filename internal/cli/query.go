package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"legalrag/internal/domain"
	"legalrag/internal/usecase"
)

var (
	queryText      string
	queryTopK      int
	queryCase      string
	queryCourt     string
	querySection   string
	queryNoSources bool
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question over the ingested documents",
	Long: `Retrieve the most relevant passages, compress them to the context budget
and generate an answer.

Examples:
  legalrag query -q "What did the court hold on equal protection?"
  legalrag query -q "standard of review" --court "Supreme Court" --section HOLDING --json`,
	RunE: runQuery,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <case name>",
	Short: "Analyze a single case",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTemplate(cmd, func(q *usecase.QueryUseCase) (*domain.RAGResponse, error) {
			return q.AnalyzeCase(cmd.Context(), strings.Join(args, " "))
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <case a> <case b>",
	Short: "Compare two cases",
	Example: `  legalrag compare "Plessy v. Ferguson" "Brown v. Board of Education"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTemplate(cmd, func(q *usecase.QueryUseCase) (*domain.RAGResponse, error) {
			return q.CompareCases(cmd.Context(), args[0], args[1])
		})
	},
}

var precedentsCmd = &cobra.Command{
	Use:   "precedents <legal issue>",
	Short: "Find precedents for a legal issue",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTemplate(cmd, func(q *usecase.QueryUseCase) (*domain.RAGResponse, error) {
			return q.FindPrecedents(cmd.Context(), strings.Join(args, " "))
		})
	},
}

func init() {
	rootCmd.AddCommand(queryCmd, analyzeCmd, compareCmd, precedentsCmd)

	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	queryCmd.Flags().StringVar(&queryCase, "case", "", "restrict retrieval to a case name")
	queryCmd.Flags().StringVar(&queryCourt, "court", "", "restrict retrieval to a court")
	queryCmd.Flags().StringVar(&querySection, "section", "", "restrict retrieval to a section, e.g. HOLDING")
	queryCmd.Flags().BoolVar(&queryNoSources, "no-sources", false, "omit sources from the output")
	queryCmd.MarkFlagRequired("query")

	for _, c := range []*cobra.Command{queryCmd, analyzeCmd, compareCmd, precedentsCmd} {
		c.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	filter := domain.Filter{}
	if queryCase != "" {
		filter[domain.KeyCaseName] = queryCase
	}
	if queryCourt != "" {
		filter[domain.KeyCourt] = queryCourt
	}
	if querySection != "" {
		filter[domain.KeySection] = strings.ToUpper(querySection)
	}

	return runTemplate(cmd, func(q *usecase.QueryUseCase) (*domain.RAGResponse, error) {
		return q.Query(cmd.Context(), queryText, usecase.QueryOptions{
			Filter:         filter,
			TopK:           queryTopK,
			ExcludeSources: queryNoSources,
		})
	})
}

func runTemplate(cmd *cobra.Command, ask func(*usecase.QueryUseCase) (*domain.RAGResponse, error)) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := ask(a.Query)
	if err != nil {
		return err
	}

	if queryJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	printResponse(resp)
	return nil
}

func printResponse(resp *domain.RAGResponse) {
	fmt.Println(resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for i, s := range resp.Sources {
			label := s.Metadata.CaseName
			if label == "" {
				label = s.Metadata.Filename
			}
			if s.Metadata.Section != "" {
				label += " [" + s.Metadata.Section + "]"
			}
			fmt.Printf("  [%d] %s (similarity: %.2f)\n", i+1, label, s.Similarity)
		}
	}

	if resp.TokenStats.Original > 0 {
		fmt.Printf("\nContext: %d -> %d tokens (%.1f%% savings, %s)\n",
			resp.TokenStats.Original, resp.TokenStats.Compressed,
			resp.TokenStats.SavingsPercent, resp.CompressionMethod)
	}
	if len(resp.PreservedCitations) > 0 {
		fmt.Printf("Citations preserved: %s\n", strings.Join(resp.PreservedCitations, "; "))
	}
}
