package compressor

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"legalrag/internal/adapter/analyzer"
	"legalrag/internal/adapter/citation"
	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// scoringTerms each add one point to a sentence that contains them.
var scoringTerms = []string{
	"court", "held", "holding", "plaintiff", "defendant",
	"judgment", "ruling", "statute", "precedent", "affirm",
}

// reporterCitation loosely matches "<volume> <Reporter>. <page>".
var reporterCitation = regexp.MustCompile(`\d+\s+[A-Z][a-z]*\.\s*\d*d?\s+\d+`)

// ExtractiveCompressor keeps the highest scoring sentences of the input.
// It needs no external model.
type ExtractiveCompressor struct {
	ratio float64
}

func NewExtractiveCompressor(targetRatio float64) *ExtractiveCompressor {
	return &ExtractiveCompressor{ratio: targetRatio}
}

func (c *ExtractiveCompressor) TargetRatio() float64 { return c.ratio }

func (c *ExtractiveCompressor) Method() string { return StrategyExtractive }

func (c *ExtractiveCompressor) Compress(ctx context.Context, text string, opts port.CompressOptions) (domain.CompressionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CompressionResult{}, err
	}

	ratio := c.ratio
	if opts.Ratio > 0 {
		ratio = opts.Ratio
	}

	sentences := c.sentences(text, opts.PreserveCitations)
	kept := SelectSentences(sentences, opts.Query, ratio)
	out := strings.Join(kept, " ")

	return newResult(text, out, StrategyExtractive, citation.Extract(out)), nil
}

// sentences splits text into sentences. With protect set, citations are
// swapped for placeholders first so their periods never end a sentence.
func (c *ExtractiveCompressor) sentences(text string, protect bool) []string {
	if !protect {
		return analyzer.SplitSentences(text)
	}
	protected := citation.Protect(text)
	m := protected.Map()
	sentences := analyzer.SplitSentences(protected.Text)
	for i, s := range sentences {
		sentences[i] = citation.Restore(s, m)
	}
	return sentences
}

// TargetCount is the number of sentences kept out of n at ratio.
func TargetCount(n int, ratio float64) int {
	if n == 0 {
		return 0
	}
	// Round away float noise so that 10*0.3 keeps 3, not 4.
	count := int(math.Ceil(float64(n)*ratio - 1e-9))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

// SelectSentences returns the top scoring sentences in their original
// order. Equal scores keep their original relative order.
func SelectSentences(sentences []string, query string, ratio float64) []string {
	count := TargetCount(len(sentences), ratio)
	if count == 0 {
		return nil
	}

	order := make([]int, len(sentences))
	scores := make([]float64, len(sentences))
	for i, s := range sentences {
		order[i] = i
		scores[i] = ScoreSentence(s, query)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	picked := order[:count]
	sort.Ints(picked)

	out := make([]string, 0, count)
	for _, i := range picked {
		out = append(out, sentences[i])
	}
	return out
}

// ScoreSentence rates how much legal substance a sentence carries.
func ScoreSentence(sentence, query string) float64 {
	lower := strings.ToLower(sentence)
	score := 0.0

	for _, term := range scoringTerms {
		if strings.Contains(lower, term) {
			score += 1.0
		}
	}

	if reporterCitation.MatchString(sentence) {
		score += 2.0
	}

	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(lower, term) {
			score += 0.5
		}
	}

	return score
}
