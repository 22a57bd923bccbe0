package usecase

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	"go.uber.org/zap"
)

// ReceiptService records receipts. Receipts cannot be edited once stored.
type ReceiptService struct {
	repo   domain.ReceiptRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReceiptService creates a new receipt service
func NewReceiptService(repo domain.ReceiptRepository, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		repo:   repo,
		logger: logger.Named("receipts"),
		now:    time.Now,
	}
}

// Create validates, fills derived fields and stores a receipt.
// Item totals default to quantity * unit price, the receipt total to the sum of items,
// missing categories to "Other" and a missing purchase date to now.
func (s *ReceiptService) Create(ctx context.Context, receipt *domain.Receipt) (*domain.Receipt, error) {
	if err := validateReceipt(receipt); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for i := range receipt.Items {
		item := &receipt.Items[i]
		if item.TotalPrice == 0 {
			item.TotalPrice = item.Quantity * item.UnitPrice
		}
		if strings.TrimSpace(item.Category) == "" {
			item.Category = domain.DefaultCategory
		}
	}
	if receipt.TotalAmount == 0 {
		receipt.TotalAmount = receipt.ItemsTotal()
	}
	if receipt.PurchaseDate.IsZero() {
		receipt.PurchaseDate = now
	}
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	s.logger.Info("Receipt recorded",
		zap.Int64("receipt_id", receipt.ID),
		zap.String("store", receipt.StoreName),
		zap.Int("items", len(receipt.Items)),
		zap.Float64("total", receipt.TotalAmount))
	return receipt, nil
}

// Get returns a receipt by id
func (s *ReceiptService) Get(ctx context.Context, id int64) (*domain.Receipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

// List returns receipts, most recent purchase first
func (s *ReceiptService) List(ctx context.Context) ([]domain.Receipt, error) {
	receipts, err := s.repo.ListReceipts(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(receipts, func(a, b domain.Receipt) int {
		return b.PurchaseDate.Compare(a.PurchaseDate)
	})
	return receipts, nil
}

// Delete removes a receipt
func (s *ReceiptService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteReceipt(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Receipt deleted", zap.Int64("receipt_id", id))
	return nil
}

func validateReceipt(receipt *domain.Receipt) error {
	if receipt == nil {
		return domain.ErrInvalidRequest
	}
	if strings.TrimSpace(receipt.StoreName) == "" {
		return fmt.Errorf("%w: store name is required", domain.ErrInvalidRequest)
	}
	if math.IsNaN(receipt.TotalAmount) || receipt.TotalAmount < 0 {
		return fmt.Errorf("%w: total amount must be non-negative", domain.ErrInvalidRequest)
	}
	for i, item := range receipt.Items {
		if err := validatePurchasedItem(item); err != nil {
			return fmt.Errorf("%w: items[%d]: %v", domain.ErrInvalidRequest, i, err)
		}
	}
	return nil
}

func validatePurchasedItem(item domain.PurchasedItem) error {
	if strings.TrimSpace(item.ProductName) == "" {
		return fmt.Errorf("product name is required")
	}
	if !(item.Quantity > 0) {
		return fmt.Errorf("quantity must be positive")
	}
	if math.IsNaN(item.UnitPrice) || item.UnitPrice < 0 {
		return fmt.Errorf("unit price must be non-negative")
	}
	if math.IsNaN(item.TotalPrice) || item.TotalPrice < 0 {
		return fmt.Errorf("total price must be non-negative")
	}
	return nil
}
