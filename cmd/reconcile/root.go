package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitebudget/backend/internal/domain"
	"github.com/bitebudget/backend/internal/infrastructure/events"
	"github.com/bitebudget/backend/internal/infrastructure/memory"
	"github.com/bitebudget/backend/internal/logger"
	"github.com/bitebudget/backend/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	listPath       string
	receiptPaths   []string
	output         string
	nameThreshold  float64
	priceTolerance float64
	requireBoth    bool
	clamp          bool
	verbose        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare a shopping list with what was actually bought",
		Long: `Reconcile a planned shopping list against one or more receipts.

Every list item is paired with at most one receipt item, either by a fuzzy
name match or by an identical category, and classified as matched, saved,
overspent or not purchased.

Files may be YAML or JSON (by extension).

Examples:
  reconcile --list weekly.yaml --receipt market.yaml
  reconcile --list weekly.yaml --receipt a.yaml --receipt b.yaml --output json`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts)
		},
	}

	defaults := usecase.DefaultMatchOptions()
	flags := cmd.Flags()
	flags.StringVarP(&opts.listPath, "list", "l", "", "Shopping list file")
	flags.StringArrayVarP(&opts.receiptPaths, "receipt", "r", nil, "Receipt file (repeatable)")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")
	flags.Float64Var(&opts.nameThreshold, "name-threshold", defaults.NameThreshold, "Name similarity a match must exceed (0 < t <= 1)")
	flags.Float64Var(&opts.priceTolerance, "price-tolerance", defaults.PriceTolerance, "Price difference still counted as matched (must be positive)")
	flags.BoolVar(&opts.requireBoth, "require-both", false, "Require both a name and a category match")
	flags.BoolVar(&opts.clamp, "clamp", false, "Cap name similarity at 1.0")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	_ = cmd.MarkFlagRequired("list")
	_ = cmd.MarkFlagRequired("receipt")

	return cmd
}

func runReconcile(cmd *cobra.Command, opts *options) error {
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unsupported output format %q (want table or json)", opts.output)
	}
	if opts.nameThreshold <= 0 || opts.nameThreshold > 1 {
		return fmt.Errorf("--name-threshold must be in (0, 1], got %v", opts.nameThreshold)
	}
	if opts.priceTolerance <= 0 {
		return fmt.Errorf("--price-tolerance must be positive, got %v", opts.priceTolerance)
	}

	log := zap.NewNop()
	if opts.verbose {
		var err error
		if log, err = logger.New("debug", "console"); err != nil {
			return err
		}
		defer log.Sync()
	}

	list, err := loadList(opts.listPath)
	if err != nil {
		return err
	}
	receipts := make([]*domain.Receipt, 0, len(opts.receiptPaths))
	for _, path := range opts.receiptPaths {
		receipt, err := loadReceipt(path)
		if err != nil {
			return err
		}
		receipts = append(receipts, receipt)
	}

	report, err := reconcileFiles(cmd.Context(), list, receipts, usecase.MatchOptions{
		NameThreshold:          opts.nameThreshold,
		PriceTolerance:         opts.priceTolerance,
		RequireNameAndCategory: opts.requireBoth,
		ClampSimilarity:        opts.clamp,
	}, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err = fmt.Fprintln(out, renderReport(list.Name, report))
	return err
}

// reconcileFiles runs the files through the same services the API uses, backed by a throwaway store,
// so validation and derived receipt fields behave identically.
func reconcileFiles(
	ctx context.Context,
	list *domain.ShoppingList,
	receipts []*domain.Receipt,
	match usecase.MatchOptions,
	log *zap.Logger,
) (*domain.Report, error) {
	store := memory.NewStore()
	lists := usecase.NewShoppingListService(store, log)
	receiptService := usecase.NewReceiptService(store, log)

	created, err := lists.Create(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("shopping list: %w", err)
	}

	ids := make([]int64, 0, len(receipts))
	for i, receipt := range receipts {
		stored, err := receiptService.Create(ctx, receipt)
		if err != nil {
			return nil, fmt.Errorf("receipt %d: %w", i+1, err)
		}
		ids = append(ids, stored.ID)
	}

	service := usecase.NewReconciliationService(store, store, nil, events.NopPublisher{}, log,
		usecase.ReconciliationServiceConfig{Match: match})
	return service.ReconcileList(ctx, created.ID, ids)
}
