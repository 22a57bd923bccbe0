package domain

import "time"

// DefaultCategory is assigned to receipt items recorded without a category
const DefaultCategory = "Other"

// PurchasedItem is a receipt line item representing an actual purchase
type PurchasedItem struct {
	ID          int64   `json:"id,omitempty" yaml:"id,omitempty"`
	ProductName string  `json:"productName" yaml:"product_name"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	UnitPrice   float64 `json:"unitPrice" yaml:"unit_price"`
	TotalPrice  float64 `json:"totalPrice" yaml:"total_price"` // quantity * unitPrice
	Category    string  `json:"category" yaml:"category"`
}

// Receipt is a recorded shopping trip. Receipts are immutable once stored.
type Receipt struct {
	ID           int64           `json:"id" yaml:"id,omitempty"`
	StoreName    string          `json:"storeName" yaml:"store_name"`
	PurchaseDate time.Time       `json:"purchaseDate" yaml:"purchase_date"`
	TotalAmount  float64         `json:"totalAmount" yaml:"total_amount"`
	Items        []PurchasedItem `json:"items" yaml:"items"`
	CreatedAt    time.Time       `json:"createdAt" yaml:"-"`
	UpdatedAt    time.Time       `json:"updatedAt" yaml:"-"`
}

// ItemsTotal sums the total price of every line item
func (r *Receipt) ItemsTotal() float64 {
	var total float64
	for _, item := range r.Items {
		total += item.TotalPrice
	}
	return total
}
