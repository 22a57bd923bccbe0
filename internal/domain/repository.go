package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque encoded payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ShoppingListRepository persists shopping lists
type ShoppingListRepository interface {
	CreateList(ctx context.Context, list *ShoppingList) error
	GetList(ctx context.Context, id int64) (*ShoppingList, error)
	ListLists(ctx context.Context) ([]ShoppingList, error)
	UpdateList(ctx context.Context, list *ShoppingList) error
	DeleteList(ctx context.Context, id int64) error
}

// ReceiptRepository persists receipts
type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, receipt *Receipt) error
	GetReceipt(ctx context.Context, id int64) (*Receipt, error)
	ListReceipts(ctx context.Context) ([]Receipt, error)
	DeleteReceipt(ctx context.Context, id int64) error
}

// EventPublisher announces completed reconciliations to interested consumers
type EventPublisher interface {
	PublishReconciliation(ctx context.Context, event ReconciliationEvent) error
}

// ReconciliationEvent is emitted after a stored shopping list has been reconciled
type ReconciliationEvent struct {
	ListID         int64     `json:"listId"`
	ReceiptIDs     []int64   `json:"receiptIds"`
	Summary        Summary   `json:"summary"`
	TotalSavings   float64   `json:"totalSavings"`
	TotalOverspend float64   `json:"totalOverspend"`
	Timestamp      time.Time `json:"timestamp"`
}
