package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/bitebudget/backend/internal/domain"
)

// MockListRepository is a mock implementation of domain.ShoppingListRepository
type MockListRepository struct {
	mu        sync.Mutex
	lists     map[int64]domain.ShoppingList
	nextID    int64
	getError  error
	saveError error
}

func NewMockListRepository() *MockListRepository {
	return &MockListRepository{lists: make(map[int64]domain.ShoppingList)}
}

func (m *MockListRepository) CreateList(ctx context.Context, list *domain.ShoppingList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.nextID++
	list.ID = m.nextID
	m.lists[list.ID] = *list
	return nil
}

func (m *MockListRepository) GetList(ctx context.Context, id int64) (*domain.ShoppingList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	list, ok := m.lists[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	list.Items = append([]domain.PlannedItem(nil), list.Items...)
	return &list, nil
}

func (m *MockListRepository) ListLists(ctx context.Context) ([]domain.ShoppingList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ShoppingList
	for _, l := range m.lists {
		out = append(out, l)
	}
	return out, nil
}

func (m *MockListRepository) UpdateList(ctx context.Context, list *domain.ShoppingList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	if _, ok := m.lists[list.ID]; !ok {
		return domain.ErrNotFound
	}
	m.lists[list.ID] = *list
	return nil
}

func (m *MockListRepository) DeleteList(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.lists, id)
	return nil
}

// MockReceiptRepository is a mock implementation of domain.ReceiptRepository
type MockReceiptRepository struct {
	mu       sync.Mutex
	receipts map[int64]domain.Receipt
	nextID   int64
	getCalls int

	// getDelay holds each GetReceipt open so concurrent reads overlap
	getDelay    time.Duration
	inFlight    int
	maxInFlight int
}

func NewMockReceiptRepository() *MockReceiptRepository {
	return &MockReceiptRepository{receipts: make(map[int64]domain.Receipt)}
}

func (m *MockReceiptRepository) CreateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	receipt.ID = m.nextID
	m.receipts[receipt.ID] = *receipt
	return nil
}

func (m *MockReceiptRepository) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	m.mu.Lock()
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	m.mu.Unlock()

	time.Sleep(m.getDelay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	m.getCalls++
	r, ok := m.receipts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *MockReceiptRepository) ListReceipts(ctx context.Context) ([]domain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Receipt
	for id := int64(1); id <= m.nextID; id++ {
		if r, ok := m.receipts[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockReceiptRepository) DeleteReceipt(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.receipts, id)
	return nil
}

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string][]byte
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalled = true
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockPublisher records published events
type MockPublisher struct {
	events []domain.ReconciliationEvent
	err    error
}

func (m *MockPublisher) PublishReconciliation(ctx context.Context, event domain.ReconciliationEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
