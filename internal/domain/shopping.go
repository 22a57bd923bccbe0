package domain

import "time"

// PlannedItem is a shopping-list entry representing an intended purchase
type PlannedItem struct {
	ID             int64   `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string  `json:"name" yaml:"name"`
	Quantity       float64 `json:"quantity" yaml:"quantity"`
	Unit           string  `json:"unit" yaml:"unit"` // e.g. "kg", "pcs"
	Category       string  `json:"category" yaml:"category"`
	EstimatedPrice float64 `json:"estimatedPrice" yaml:"estimated_price"`
	Completed      bool    `json:"completed" yaml:"completed"`
	Notes          string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ShoppingList is an ordered collection of planned items
type ShoppingList struct {
	ID        int64         `json:"id" yaml:"id,omitempty"`
	Name      string        `json:"name" yaml:"name"`
	Items     []PlannedItem `json:"items" yaml:"items"`
	CreatedAt time.Time     `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time     `json:"updatedAt" yaml:"-"`
}

// EstimatedTotal sums the estimated price of every item on the list
func (l *ShoppingList) EstimatedTotal() float64 {
	var total float64
	for _, item := range l.Items {
		total += item.EstimatedPrice
	}
	return total
}
