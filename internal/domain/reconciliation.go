package domain

// MatchStatus classifies the spending outcome of a planned item
type MatchStatus string

const (
	StatusMatched      MatchStatus = "matched"
	StatusSaved        MatchStatus = "saved"
	StatusOverspent    MatchStatus = "overspent"
	StatusNotPurchased MatchStatus = "not_purchased"
)

// MatchResult pairs one planned item with zero or one purchased item
type MatchResult struct {
	Planned   PlannedItem    `json:"planned"`
	Purchased *PurchasedItem `json:"purchased,omitempty"`
	// PurchasedIndex is the position of Purchased in the reconciled input, -1 when unmatched
	PurchasedIndex  int         `json:"purchasedIndex"`
	Status          MatchStatus `json:"status"`
	PriceDifference float64     `json:"priceDifference"` // estimated - actual
	ConfidenceScore float64     `json:"confidenceScore"` // 0-100, may exceed 100 when unclamped
}

// Summary holds the counts shown alongside a reconciliation report
type Summary struct {
	PlannedCount      int     `json:"plannedCount"`
	PurchasedCount    int     `json:"purchasedCount"`
	MatchedCount      int     `json:"matchedCount"` // matched + saved + overspent
	SavedCount        int     `json:"savedCount"`
	OverspentCount    int     `json:"overspentCount"`
	NotPurchasedCount int     `json:"notPurchasedCount"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// Report is the outcome of reconciling a shopping list against purchases
type Report struct {
	Results        []MatchResult `json:"results"`
	TotalSavings   float64       `json:"totalSavings"`
	TotalOverspend float64       `json:"totalOverspend"`
	Summary        Summary       `json:"summary"`
}
