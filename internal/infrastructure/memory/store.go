package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/bitebudget/backend/internal/domain"
)

// Store is a thread-safe in-memory implementation of the shopping list and receipt
// repositories. Values are copied in and out so callers never share item slices with the store.
type Store struct {
	mutex sync.RWMutex

	lists         map[int64]domain.ShoppingList
	receipts      map[int64]domain.Receipt
	nextListID    int64
	nextReceiptID int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		lists:    make(map[int64]domain.ShoppingList),
		receipts: make(map[int64]domain.Receipt),
	}
}

// CreateList assigns an id and stores the list
func (s *Store) CreateList(ctx context.Context, list *domain.ShoppingList) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextListID++
	list.ID = s.nextListID
	for i := range list.Items {
		list.Items[i].ID = int64(i + 1)
	}
	s.lists[list.ID] = copyList(*list)
	return nil
}

// GetList returns a copy of the stored list
func (s *Store) GetList(ctx context.Context, id int64) (*domain.ShoppingList, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	list, ok := s.lists[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyList(list)
	return &out, nil
}

// ListLists returns every list ordered by id
func (s *Store) ListLists(ctx context.Context) ([]domain.ShoppingList, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.ShoppingList, 0, len(s.lists))
	for _, list := range s.lists {
		out = append(out, copyList(list))
	}
	slices.SortFunc(out, func(a, b domain.ShoppingList) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

// UpdateList replaces a stored list
func (s *Store) UpdateList(ctx context.Context, list *domain.ShoppingList) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.lists[list.ID]; !ok {
		return domain.ErrNotFound
	}
	for i := range list.Items {
		list.Items[i].ID = int64(i + 1)
	}
	s.lists[list.ID] = copyList(*list)
	return nil
}

// DeleteList removes a list
func (s *Store) DeleteList(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.lists[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.lists, id)
	return nil
}

// CreateReceipt assigns ids and stores the receipt
func (s *Store) CreateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextReceiptID++
	receipt.ID = s.nextReceiptID
	for i := range receipt.Items {
		receipt.Items[i].ID = int64(i + 1)
	}
	s.receipts[receipt.ID] = copyReceipt(*receipt)
	return nil
}

// GetReceipt returns a copy of the stored receipt
func (s *Store) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	receipt, ok := s.receipts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyReceipt(receipt)
	return &out, nil
}

// ListReceipts returns every receipt ordered by id
func (s *Store) ListReceipts(ctx context.Context) ([]domain.Receipt, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]domain.Receipt, 0, len(s.receipts))
	for _, receipt := range s.receipts {
		out = append(out, copyReceipt(receipt))
	}
	slices.SortFunc(out, func(a, b domain.Receipt) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

// DeleteReceipt removes a receipt
func (s *Store) DeleteReceipt(ctx context.Context, id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.receipts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.receipts, id)
	return nil
}

func copyList(l domain.ShoppingList) domain.ShoppingList {
	l.Items = slices.Clone(l.Items)
	return l
}

func copyReceipt(r domain.Receipt) domain.Receipt {
	r.Items = slices.Clone(r.Items)
	return r
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
