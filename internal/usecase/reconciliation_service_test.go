package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	lists     *MockListRepository
	receipts  *MockReceiptRepository
	cache     *MockCacheRepository
	publisher *MockPublisher
	svc       *ReconciliationService
	listID    int64
	receipt1  int64
	receipt2  int64
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	ctx := context.Background()

	f := &reconcileFixture{
		lists:     NewMockListRepository(),
		receipts:  NewMockReceiptRepository(),
		cache:     NewMockCacheRepository(),
		publisher: &MockPublisher{},
	}
	f.svc = NewReconciliationService(f.lists, f.receipts, f.cache, f.publisher, nil, ReconciliationServiceConfig{})
	f.svc.now = fixedClock(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC))

	list := &domain.ShoppingList{
		Name: "Weekly",
		Items: []domain.PlannedItem{
			{Name: "Milk", Quantity: 2, Category: "Dairy", EstimatedPrice: 50},
			{Name: "Chicken Breast", Quantity: 1, Category: "Meat", EstimatedPrice: 120},
			{Name: "Bananas", Quantity: 1, Category: "Fruits", EstimatedPrice: 25},
		},
		UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.lists.CreateList(ctx, list))
	f.listID = list.ID

	r1 := &domain.Receipt{
		StoreName: "SuperMart",
		Items:     []domain.PurchasedItem{{ProductName: "Leche Lala 1L", Quantity: 2, UnitPrice: 23.5, TotalPrice: 47, Category: "Dairy"}},
	}
	r2 := &domain.Receipt{
		StoreName: "Butcher",
		Items:     []domain.PurchasedItem{{ProductName: "Pechuga de Pollo", Quantity: 1, UnitPrice: 135, TotalPrice: 135, Category: "Meat"}},
	}
	require.NoError(t, f.receipts.CreateReceipt(ctx, r1))
	require.NoError(t, f.receipts.CreateReceipt(ctx, r2))
	f.receipt1, f.receipt2 = r1.ID, r2.ID

	return f
}

func TestReconciliationService_ReconcileList(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles against concatenated receipts", func(t *testing.T) {
		f := newReconcileFixture(t)

		report, err := f.svc.ReconcileList(ctx, f.listID, []int64{f.receipt1, f.receipt2})
		require.NoError(t, err)
		require.Len(t, report.Results, 3)

		assert.Equal(t, domain.StatusSaved, report.Results[0].Status)
		assert.Equal(t, 0, report.Results[0].PurchasedIndex)
		assert.Equal(t, domain.StatusOverspent, report.Results[1].Status)
		assert.Equal(t, 1, report.Results[1].PurchasedIndex)
		assert.Equal(t, domain.StatusNotPurchased, report.Results[2].Status)
		assert.InDelta(t, 3.0, report.TotalSavings, 1e-9)
		assert.InDelta(t, 15.0, report.TotalOverspend, 1e-9)
		assert.Equal(t, 2, report.Summary.PurchasedCount)
	})

	t.Run("caches and publishes once", func(t *testing.T) {
		f := newReconcileFixture(t)
		ids := []int64{f.receipt1, f.receipt2}

		first, err := f.svc.ReconcileList(ctx, f.listID, ids)
		require.NoError(t, err)
		assert.True(t, f.cache.setCalled)
		require.Len(t, f.publisher.events, 1)

		event := f.publisher.events[0]
		assert.Equal(t, f.listID, event.ListID)
		assert.Equal(t, ids, event.ReceiptIDs)
		assert.Equal(t, first.Summary, event.Summary)

		second, err := f.svc.ReconcileList(ctx, f.listID, ids)
		require.NoError(t, err)
		assert.Len(t, f.publisher.events, 1, "cache hit should not publish again")
		assert.Equal(t, first.Summary, second.Summary)
		assert.Equal(t, first.Results[0].Purchased.ProductName, second.Results[0].Purchased.ProductName)
	})

	t.Run("receipt order changes the cache key", func(t *testing.T) {
		f := newReconcileFixture(t)

		_, err := f.svc.ReconcileList(ctx, f.listID, []int64{f.receipt1, f.receipt2})
		require.NoError(t, err)
		_, err = f.svc.ReconcileList(ctx, f.listID, []int64{f.receipt2, f.receipt1})
		require.NoError(t, err)

		assert.Len(t, f.cache.data, 2)
		assert.Len(t, f.publisher.events, 2)
	})

	t.Run("works without cache or publisher", func(t *testing.T) {
		f := newReconcileFixture(t)
		svc := NewReconciliationService(f.lists, f.receipts, nil, nil, nil, ReconciliationServiceConfig{})

		report, err := svc.ReconcileList(ctx, f.listID, []int64{f.receipt1})
		require.NoError(t, err)
		assert.Len(t, report.Results, 3)
	})

	t.Run("cache and publish failures do not fail the request", func(t *testing.T) {
		f := newReconcileFixture(t)
		f.cache.setError = errors.New("cache down")
		f.publisher.err = domain.ErrPublishFailure

		_, err := f.svc.ReconcileList(ctx, f.listID, []int64{f.receipt1})
		assert.NoError(t, err)
	})

	t.Run("repeated receipt ids are read once", func(t *testing.T) {
		f := newReconcileFixture(t)
		twoMilks := &domain.ShoppingList{
			Name: "Milk run",
			Items: []domain.PlannedItem{
				{Name: "Milk", Quantity: 1, Category: "Dairy", EstimatedPrice: 50},
				{Name: "Milk", Quantity: 1, Category: "Dairy", EstimatedPrice: 50},
			},
		}
		require.NoError(t, f.lists.CreateList(ctx, twoMilks))

		report, err := f.svc.ReconcileList(ctx, twoMilks.ID, []int64{f.receipt1, f.receipt1})
		require.NoError(t, err)

		assert.Equal(t, domain.StatusSaved, report.Results[0].Status)
		assert.Equal(t, domain.StatusNotPurchased, report.Results[1].Status)
		assert.InDelta(t, 3.0, report.TotalSavings, 1e-9)
		assert.Equal(t, 1, report.Summary.PurchasedCount)
		assert.Equal(t, 1, f.receipts.getCalls)
		require.Len(t, f.publisher.events, 1)
		assert.Equal(t, []int64{f.receipt1}, f.publisher.events[0].ReceiptIDs)
	})

	t.Run("first occurrence fixes receipt order", func(t *testing.T) {
		f := newReconcileFixture(t)

		report, err := f.svc.ReconcileList(ctx, f.listID, []int64{f.receipt2, f.receipt1, f.receipt2})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Summary.PurchasedCount)
		assert.Equal(t, "Leche Lala 1L", report.Results[0].Purchased.ProductName)
		assert.Equal(t, 1, report.Results[0].PurchasedIndex)
	})

	t.Run("bounds concurrent receipt reads", func(t *testing.T) {
		f := newReconcileFixture(t)
		ids := []int64{f.receipt1, f.receipt2}
		for i := 0; i < 3*maxConcurrentLoads; i++ {
			r := &domain.Receipt{StoreName: "Kiosk", Items: []domain.PurchasedItem{{ProductName: "Gum", Quantity: 1, UnitPrice: 5, TotalPrice: 5, Category: "Snacks"}}}
			require.NoError(t, f.receipts.CreateReceipt(ctx, r))
			ids = append(ids, r.ID)
		}
		f.receipts.getDelay = 5 * time.Millisecond

		report, err := f.svc.ReconcileList(ctx, f.listID, ids)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Summary.PurchasedCount)
		assert.Equal(t, len(ids), f.receipts.getCalls)
		// the list read shares the limit with the receipt reads
		assert.LessOrEqual(t, f.receipts.maxInFlight, maxConcurrentLoads)
	})

	t.Run("requires receipt ids", func(t *testing.T) {
		f := newReconcileFixture(t)
		_, err := f.svc.ReconcileList(ctx, f.listID, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("unknown list", func(t *testing.T) {
		f := newReconcileFixture(t)
		_, err := f.svc.ReconcileList(ctx, 404, []int64{f.receipt1})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown receipt", func(t *testing.T) {
		f := newReconcileFixture(t)
		_, err := f.svc.ReconcileList(ctx, f.listID, []int64{f.receipt1, 404})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.publisher.events)
	})
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, uniqueIDs([]int64{3, 1, 3, 2, 1}))
	assert.Equal(t, []int64{}, uniqueIDs(nil))
}

func TestReconciliationService_ReconcileItems(t *testing.T) {
	svc := NewReconciliationService(nil, nil, nil, nil, nil, ReconciliationServiceConfig{
		Match: MatchOptions{RequireNameAndCategory: true},
	})

	report := svc.ReconcileItems(
		[]domain.PlannedItem{{Name: "Milk", Category: "Dairy", EstimatedPrice: 50}},
		[]domain.PurchasedItem{{ProductName: "Leche Lala 1L", Category: "Dairy", TotalPrice: 47}},
	)

	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.StatusNotPurchased, report.Results[0].Status, "configured options must be honoured")
}

func TestGenerateCacheKey(t *testing.T) {
	updated := time.Unix(0, 1700)
	list := &domain.ShoppingList{ID: 7, UpdatedAt: updated}
	receipts := []*domain.Receipt{{ID: 3, UpdatedAt: updated}, {ID: 9, UpdatedAt: updated}}

	assert.Equal(t, "reconcile:7@1700:3@1700,9@1700", generateCacheKey(list, receipts))
}
