package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds the storage reads issued by one reconciliation
const maxConcurrentLoads = 8

// ReconciliationServiceConfig holds configuration for the reconciliation service
type ReconciliationServiceConfig struct {
	CacheTTL time.Duration
	Match    MatchOptions
}

// ReconciliationService reconciles stored shopping lists against stored receipts.
// The cache and publisher are optional.
type ReconciliationService struct {
	lists     domain.ShoppingListRepository
	receipts  domain.ReceiptRepository
	cache     domain.CacheRepository
	publisher domain.EventPublisher
	matcher   *Matcher
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewReconciliationService creates a new reconciliation service with dependencies
func NewReconciliationService(
	lists domain.ShoppingListRepository,
	receipts domain.ReceiptRepository,
	cache domain.CacheRepository,
	publisher domain.EventPublisher,
	logger *zap.Logger,
	config ReconciliationServiceConfig,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	return &ReconciliationService{
		lists:     lists,
		receipts:  receipts,
		cache:     cache,
		publisher: publisher,
		matcher:   NewMatcher(config.Match),
		cacheTTL:  cacheTTL,
		logger:    logger.Named("reconcile"),
		now:       time.Now,
	}
}

// ReconcileItems reconciles caller-supplied items without touching storage
func (s *ReconciliationService) ReconcileItems(planned []domain.PlannedItem, purchased []domain.PurchasedItem) domain.Report {
	report := s.matcher.Reconcile(planned, purchased)
	s.logger.Debug("Ad-hoc reconciliation",
		zap.Int("planned", len(planned)),
		zap.Int("purchased", len(purchased)),
		zap.Int("matched", report.Summary.MatchedCount))
	return report
}

// ReconcileList reconciles a stored shopping list against the items of the given receipts.
// Receipt items are concatenated in the order the ids are given; repeated ids are read once,
// at their first position, so no line item can be matched twice.
// Flow: load list and receipts -> check cache -> match -> cache -> publish -> return
func (s *ReconciliationService) ReconcileList(ctx context.Context, listID int64, receiptIDs []int64) (*domain.Report, error) {
	if len(receiptIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one receipt id is required", domain.ErrInvalidRequest)
	}
	receiptIDs = uniqueIDs(receiptIDs)

	list, receipts, err := s.load(ctx, listID, receiptIDs)
	if err != nil {
		return nil, err
	}

	cacheKey := generateCacheKey(list, receipts)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		s.logger.Debug("Reconciliation served from cache", zap.String("key", cacheKey))
		return cached, nil
	}

	var purchased []domain.PurchasedItem
	for _, r := range receipts {
		purchased = append(purchased, r.Items...)
	}

	report := s.matcher.Reconcile(list.Items, purchased)

	s.logger.Info("Shopping list reconciled",
		zap.Int64("list_id", listID),
		zap.Int64s("receipt_ids", receiptIDs),
		zap.Int("matched", report.Summary.MatchedCount),
		zap.Int("not_purchased", report.Summary.NotPurchasedCount),
		zap.Float64("savings", report.TotalSavings),
		zap.Float64("overspend", report.TotalOverspend))

	if err := s.setInCache(ctx, cacheKey, &report); err != nil {
		s.logger.Warn("Failed to cache reconciliation report", zap.String("key", cacheKey), zap.Error(err))
	}

	s.publish(ctx, listID, receiptIDs, &report)

	return &report, nil
}

// load fetches the list and every receipt concurrently
func (s *ReconciliationService) load(ctx context.Context, listID int64, receiptIDs []int64) (*domain.ShoppingList, []*domain.Receipt, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	var list *domain.ShoppingList
	g.Go(func() error {
		l, err := s.lists.GetList(gctx, listID)
		if err != nil {
			return fmt.Errorf("shopping list %d: %w", listID, err)
		}
		list = l
		return nil
	})

	receipts := make([]*domain.Receipt, len(receiptIDs))
	for i, id := range receiptIDs {
		g.Go(func() error {
			r, err := s.receipts.GetReceipt(gctx, id)
			if err != nil {
				return fmt.Errorf("receipt %d: %w", id, err)
			}
			receipts[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return list, receipts, nil
}

// uniqueIDs drops repeated ids, keeping first-seen order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// generateCacheKey builds a key that changes whenever the list or a receipt changes.
// Format: "reconcile:{listID}@{updated}:{receiptID}@{updated},..."
func generateCacheKey(list *domain.ShoppingList, receipts []*domain.Receipt) string {
	parts := make([]string, len(receipts))
	for i, r := range receipts {
		parts[i] = fmt.Sprintf("%d@%d", r.ID, r.UpdatedAt.UnixNano())
	}
	return fmt.Sprintf("reconcile:%d@%d:%s", list.ID, list.UpdatedAt.UnixNano(), strings.Join(parts, ","))
}

func (s *ReconciliationService) getFromCache(ctx context.Context, key string) (*domain.Report, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, domain.ErrCacheMiss
	}
	return &report, nil
}

func (s *ReconciliationService) setInCache(ctx context.Context, key string, report *domain.Report) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}

func (s *ReconciliationService) publish(ctx context.Context, listID int64, receiptIDs []int64, report *domain.Report) {
	if s.publisher == nil {
		return
	}

	event := domain.ReconciliationEvent{
		ListID:         listID,
		ReceiptIDs:     receiptIDs,
		Summary:        report.Summary,
		TotalSavings:   report.TotalSavings,
		TotalOverspend: report.TotalOverspend,
		Timestamp:      s.now().UTC(),
	}
	if err := s.publisher.PublishReconciliation(ctx, event); err != nil {
		s.logger.Warn("Failed to publish reconciliation event", zap.Int64("list_id", listID), zap.Error(err))
	}
}
