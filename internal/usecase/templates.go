package usecase

import (
	"context"
	"fmt"

	"legalrag/internal/domain"
)

// AnalyzeCase asks for a structured analysis of one case. A non-empty
// caseName restricts retrieval to that case.
func (u *QueryUseCase) AnalyzeCase(ctx context.Context, caseName string) (*domain.RAGResponse, error) {
	question := fmt.Sprintf(`Provide a comprehensive analysis of %s including:
1. Key facts of the case
2. Legal issues presented
3. Court's holding and reasoning
4. Significance and precedential value
5. Any notable dissents or concurrences`, caseName)

	var opts QueryOptions
	if caseName != "" {
		opts.Filter = domain.Filter{domain.KeyCaseName: caseName}
	}
	return u.Query(ctx, question, opts)
}

// CompareCases asks for a comparison of two cases over the whole corpus.
func (u *QueryUseCase) CompareCases(ctx context.Context, caseA, caseB string) (*domain.RAGResponse, error) {
	question := fmt.Sprintf(`Compare and contrast %s and %s:
1. How do the facts differ?
2. What legal principles does each case establish?
3. How do the holdings relate to each other?
4. Are there any conflicts or tensions between the cases?
5. Which case would be more applicable in different scenarios?`, caseA, caseB)

	return u.Query(ctx, question, QueryOptions{})
}

// FindPrecedents asks for case law relevant to a legal issue.
func (u *QueryUseCase) FindPrecedents(ctx context.Context, legalIssue string) (*domain.RAGResponse, error) {
	question := fmt.Sprintf(`Find and analyze relevant case law precedents for the following legal issue:

%s

For each relevant precedent:
1. Cite the case name and citation
2. Explain how it relates to this issue
3. Note the holding and key reasoning
4. Assess its current validity and strength as precedent`, legalIssue)

	return u.Query(ctx, question, QueryOptions{})
}
