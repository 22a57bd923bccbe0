package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	"go.uber.org/zap"
)

// ShoppingListService manages shopping lists and validates their items
type ShoppingListService struct {
	repo   domain.ShoppingListRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewShoppingListService creates a new shopping list service
func NewShoppingListService(repo domain.ShoppingListRepository, logger *zap.Logger) *ShoppingListService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShoppingListService{
		repo:   repo,
		logger: logger.Named("shopping"),
		now:    time.Now,
	}
}

// Create validates and stores a new shopping list
func (s *ShoppingListService) Create(ctx context.Context, list *domain.ShoppingList) (*domain.ShoppingList, error) {
	if err := validateList(list); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	list.CreatedAt = now
	list.UpdatedAt = now

	if err := s.repo.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("create shopping list: %w", err)
	}

	s.logger.Info("Shopping list created",
		zap.Int64("list_id", list.ID),
		zap.Int("items", len(list.Items)))
	return list, nil
}

// Get returns a shopping list by id
func (s *ShoppingListService) Get(ctx context.Context, id int64) (*domain.ShoppingList, error) {
	return s.repo.GetList(ctx, id)
}

// List returns every shopping list
func (s *ShoppingListService) List(ctx context.Context) ([]domain.ShoppingList, error) {
	return s.repo.ListLists(ctx)
}

// Update replaces the name and items of an existing list
func (s *ShoppingListService) Update(ctx context.Context, id int64, list *domain.ShoppingList) (*domain.ShoppingList, error) {
	if err := validateList(list); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetList(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Name = list.Name
	existing.Items = list.Items
	existing.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateList(ctx, existing); err != nil {
		return nil, fmt.Errorf("update shopping list %d: %w", id, err)
	}

	s.logger.Info("Shopping list updated", zap.Int64("list_id", id), zap.Int("items", len(existing.Items)))
	return existing, nil
}

// SetItemCompleted checks an item off (or back on) the list
func (s *ShoppingListService) SetItemCompleted(ctx context.Context, id int64, index int, completed bool) (*domain.ShoppingList, error) {
	list, err := s.repo.GetList(ctx, id)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(list.Items) {
		return nil, fmt.Errorf("%w: item index %d out of range", domain.ErrInvalidRequest, index)
	}

	list.Items[index].Completed = completed
	list.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateList(ctx, list); err != nil {
		return nil, fmt.Errorf("update shopping list %d: %w", id, err)
	}
	return list, nil
}

// Delete removes a shopping list
func (s *ShoppingListService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteList(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Shopping list deleted", zap.Int64("list_id", id))
	return nil
}

func validateList(list *domain.ShoppingList) error {
	if list == nil {
		return domain.ErrInvalidRequest
	}
	if strings.TrimSpace(list.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}
	for i, item := range list.Items {
		if err := validatePlannedItem(item); err != nil {
			return fmt.Errorf("%w: items[%d]: %v", domain.ErrInvalidRequest, i, err)
		}
	}
	return nil
}

func validatePlannedItem(item domain.PlannedItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !(item.Quantity > 0) {
		return fmt.Errorf("quantity must be positive")
	}
	if math.IsNaN(item.EstimatedPrice) || item.EstimatedPrice < 0 {
		return fmt.Errorf("estimated price must be non-negative")
	}
	return nil
}
