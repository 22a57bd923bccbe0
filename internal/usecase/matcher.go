package usecase

import (
	"strings"

	"github.com/bitebudget/backend/internal/domain"
)

// Matching defaults
const (
	defaultNameThreshold  = 0.6 // name similarity must exceed this to match on name alone
	defaultPriceTolerance = 2.0 // currency units either side of the estimate counted as "matched"
	containmentScore      = 0.9 // returned when one name contains the other
)

// MatchOptions holds configuration for the list/receipt matcher
type MatchOptions struct {
	NameThreshold  float64
	PriceTolerance float64
	// RequireNameAndCategory makes a candidate need both a name match and an equal
	// category. The default accepts either one.
	RequireNameAndCategory bool
	// ClampSimilarity caps word-overlap scores at 1.0
	ClampSimilarity bool
}

// DefaultMatchOptions returns the options that reproduce the classic Smart Mapping behaviour
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		NameThreshold:  defaultNameThreshold,
		PriceTolerance: defaultPriceTolerance,
	}
}

// Matcher pairs planned shopping-list items with purchased receipt items
type Matcher struct {
	nameThreshold          float64
	priceTolerance         float64
	requireNameAndCategory bool
	clampSimilarity        bool
}

// NewMatcher creates a matcher with the given options. Non-positive thresholds fall back to defaults.
func NewMatcher(opts MatchOptions) *Matcher {
	threshold := opts.NameThreshold
	if threshold <= 0 {
		threshold = defaultNameThreshold
	}

	tolerance := opts.PriceTolerance
	if tolerance <= 0 {
		tolerance = defaultPriceTolerance
	}

	return &Matcher{
		nameThreshold:          threshold,
		priceTolerance:         tolerance,
		requireNameAndCategory: opts.RequireNameAndCategory,
		clampSimilarity:        opts.ClampSimilarity,
	}
}

var defaultMatcher = NewMatcher(DefaultMatchOptions())

// Reconcile runs the default matcher over planned and purchased items
func Reconcile(planned []domain.PlannedItem, purchased []domain.PurchasedItem) domain.Report {
	return defaultMatcher.Reconcile(planned, purchased)
}

// Reconcile pairs every planned item with at most one purchased item and classifies the outcome.
//
// Planned items are visited in order. For each one the purchased items are scanned in order and
// the first unconsumed item whose name similarity exceeds the threshold, or whose category equals
// the planned category, is taken. A purchased item is consumed by position, so duplicate names
// never collapse into one. MatchResult.Purchased points into the purchased slice.
//
// Reconcile has no side effects and never fails: empty input yields an empty report and NaN
// prices propagate into the differences and totals.
func (m *Matcher) Reconcile(planned []domain.PlannedItem, purchased []domain.PurchasedItem) domain.Report {
	report := domain.Report{
		Results: make([]domain.MatchResult, 0, len(planned)),
	}
	consumed := make([]bool, len(purchased))

	for _, p := range planned {
		idx := m.findCandidate(p, purchased, consumed)
		if idx < 0 {
			report.Results = append(report.Results, domain.MatchResult{
				Planned:        p,
				PurchasedIndex: -1,
				Status:         domain.StatusNotPurchased,
			})
			continue
		}

		consumed[idx] = true
		candidate := &purchased[idx]
		diff := p.EstimatedPrice - candidate.TotalPrice

		status := domain.StatusMatched
		switch {
		case diff > m.priceTolerance:
			status = domain.StatusSaved
			report.TotalSavings += diff
		case diff < -m.priceTolerance:
			status = domain.StatusOverspent
			report.TotalOverspend += -diff
		}

		report.Results = append(report.Results, domain.MatchResult{
			Planned:         p,
			Purchased:       candidate,
			PurchasedIndex:  idx,
			Status:          status,
			PriceDifference: diff,
			ConfidenceScore: m.Similarity(p.Name, candidate.ProductName) * 100,
		})
	}

	report.Summary = summarize(report.Results, len(purchased))
	return report
}

// findCandidate returns the index of the first acceptable unconsumed item, or -1
func (m *Matcher) findCandidate(p domain.PlannedItem, purchased []domain.PurchasedItem, consumed []bool) int {
	for i := range purchased {
		if consumed[i] {
			continue
		}
		nameMatch := m.Similarity(p.Name, purchased[i].ProductName) > m.nameThreshold
		categoryMatch := p.Category == purchased[i].Category

		if m.requireNameAndCategory {
			if nameMatch && categoryMatch {
				return i
			}
			continue
		}
		if nameMatch || categoryMatch {
			return i
		}
	}
	return -1
}

// Similarity scores two product names using the matcher's clamping setting
func (m *Matcher) Similarity(a, b string) float64 {
	score := Similarity(a, b)
	if m.clampSimilarity && score > 1 {
		return 1
	}
	return score
}

// Similarity computes a crude word-overlap score between two product names.
//
// Names are case-folded. If either contains the other the score is a flat 0.9. Otherwise every
// ordered word pair that is equal, or where one word contains the other, counts as a match, and
// the count is divided by the longer word list. Repeated words inflate the count, so the result
// can exceed 1.0.
func Similarity(a, b string) float64 {
	s1 := strings.ToLower(a)
	s2 := strings.ToLower(b)

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return containmentScore
	}

	words1 := strings.Fields(s1)
	words2 := strings.Fields(s2)

	matches := 0
	for _, w1 := range words1 {
		for _, w2 := range words2 {
			if w1 == w2 || strings.Contains(w1, w2) || strings.Contains(w2, w1) {
				matches++
			}
		}
	}

	longest := max(len(words1), len(words2))
	if longest == 0 {
		// whitespace-only names
		return 0
	}
	return float64(matches) / float64(longest)
}

// summarize derives report counts from the match results
func summarize(results []domain.MatchResult, purchasedCount int) domain.Summary {
	summary := domain.Summary{
		PlannedCount:   len(results),
		PurchasedCount: purchasedCount,
	}

	var confidence float64
	for _, r := range results {
		confidence += r.ConfidenceScore
		switch r.Status {
		case domain.StatusSaved:
			summary.SavedCount++
			summary.MatchedCount++
		case domain.StatusOverspent:
			summary.OverspentCount++
			summary.MatchedCount++
		case domain.StatusMatched:
			summary.MatchedCount++
		case domain.StatusNotPurchased:
			summary.NotPurchasedCount++
		}
	}

	if len(results) > 0 {
		summary.AverageConfidence = confidence / float64(len(results))
	}
	return summary
}
