package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitebudget/backend/internal/domain"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Repository is a SQLite implementation of the shopping list and receipt repositories
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewRepository opens (creating if needed) the database at dbPath and migrates it
func NewRepository(dbPath string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite storage ready", zap.String("path", dbPath))

	return &Repository{
		db:     db,
		logger: logger.Named("sqlite"),
	}, nil
}

// Close closes the database
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateList inserts a list and its items in one transaction
func (r *Repository) CreateList(ctx context.Context, list *domain.ShoppingList) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO shopping_lists (name, created_at, updated_at) VALUES (?, ?, ?)`,
			list.Name, formatTime(list.CreatedAt), formatTime(list.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert shopping list: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("shopping list id: %w", err)
		}
		list.ID = id
		return insertPlannedItems(ctx, tx, id, list.Items)
	})
}

// GetList loads a list with its items in position order
func (r *Repository) GetList(ctx context.Context, id int64) (*domain.ShoppingList, error) {
	var (
		list               domain.ShoppingList
		created, updated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM shopping_lists WHERE id = ?`, id).
		Scan(&list.ID, &list.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get shopping list %d: %v", domain.ErrStorageFailure, id, err)
	}

	if list.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if list.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}

	if list.Items, err = loadPlannedItems(ctx, r.db, id); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListLists returns every list ordered by id
func (r *Repository) ListLists(ctx context.Context) ([]domain.ShoppingList, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM shopping_lists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list shopping lists: %v", domain.ErrStorageFailure, err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan shopping list id: %v", domain.ErrStorageFailure, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list shopping lists: %v", domain.ErrStorageFailure, err)
	}

	lists := make([]domain.ShoppingList, 0, len(ids))
	for _, id := range ids {
		list, err := r.GetList(ctx, id)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *list)
	}
	return lists, nil
}

// UpdateList replaces the list row and all of its items
func (r *Repository) UpdateList(ctx context.Context, list *domain.ShoppingList) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE shopping_lists SET name = ?, updated_at = ? WHERE id = ?`,
			list.Name, formatTime(list.UpdatedAt), list.ID)
		if err != nil {
			return fmt.Errorf("update shopping list: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM planned_items WHERE list_id = ?`, list.ID); err != nil {
			return fmt.Errorf("clear planned items: %w", err)
		}
		return insertPlannedItems(ctx, tx, list.ID, list.Items)
	})
}

// DeleteList removes a list and its items
func (r *Repository) DeleteList(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM planned_items WHERE list_id = ?`, id); err != nil {
			return fmt.Errorf("delete planned items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete shopping list: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// CreateReceipt inserts a receipt and its line items in one transaction
func (r *Repository) CreateReceipt(ctx context.Context, receipt *domain.Receipt) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO receipts (store_name, purchase_date, total_amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			receipt.StoreName, formatTime(receipt.PurchaseDate), receipt.TotalAmount,
			formatTime(receipt.CreatedAt), formatTime(receipt.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("receipt id: %w", err)
		}
		receipt.ID = id

		for i := range receipt.Items {
			item := &receipt.Items[i]
			res, err := tx.ExecContext(ctx,
				`INSERT INTO receipt_items (receipt_id, position, product_name, quantity, unit_price, total_price, category)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, i, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice, item.Category)
			if err != nil {
				return fmt.Errorf("insert receipt item %d: %w", i, err)
			}
			if item.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("receipt item id: %w", err)
			}
		}
		return nil
	})
}

// GetReceipt loads a receipt with its line items in position order
func (r *Repository) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	receipt, err := scanReceipt(r.db.QueryRowContext(ctx,
		`SELECT id, store_name, purchase_date, total_amount, created_at, updated_at FROM receipts WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if receipt.Items, err = loadReceiptItems(ctx, r.db, id); err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns every receipt ordered by id
func (r *Repository) ListReceipts(ctx context.Context) ([]domain.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM receipts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", domain.ErrStorageFailure, err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan receipt id: %v", domain.ErrStorageFailure, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", domain.ErrStorageFailure, err)
	}

	receipts := make([]domain.Receipt, 0, len(ids))
	for _, id := range ids {
		receipt, err := r.GetReceipt(ctx, id)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *receipt)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its line items
func (r *Repository) DeleteReceipt(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM receipt_items WHERE receipt_id = ?`, id); err != nil {
			return fmt.Errorf("delete receipt items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete receipt: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// withTx runs fn in a transaction. Errors other than ErrNotFound are reported as storage failures.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrStorageFailure, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageFailure, err)
	}
	return nil
}

func insertPlannedItems(ctx context.Context, tx *sql.Tx, listID int64, items []domain.PlannedItem) error {
	for i := range items {
		item := &items[i]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO planned_items (list_id, position, name, quantity, unit, category, estimated_price, completed, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			listID, i, item.Name, item.Quantity, item.Unit, item.Category, item.EstimatedPrice, item.Completed, item.Notes)
		if err != nil {
			return fmt.Errorf("insert planned item %d: %w", i, err)
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("planned item id: %w", err)
		}
	}
	return nil
}

func loadPlannedItems(ctx context.Context, q querier, listID int64) ([]domain.PlannedItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, quantity, unit, category, estimated_price, completed, notes
		 FROM planned_items WHERE list_id = ? ORDER BY position`, listID)
	if err != nil {
		return nil, fmt.Errorf("%w: load planned items: %v", domain.ErrStorageFailure, err)
	}
	defer rows.Close()

	items := []domain.PlannedItem{}
	for rows.Next() {
		var item domain.PlannedItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.Unit, &item.Category,
			&item.EstimatedPrice, &item.Completed, &item.Notes); err != nil {
			return nil, fmt.Errorf("%w: scan planned item: %v", domain.ErrStorageFailure, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load planned items: %v", domain.ErrStorageFailure, err)
	}
	return items, nil
}

func loadReceiptItems(ctx context.Context, q querier, receiptID int64) ([]domain.PurchasedItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, product_name, quantity, unit_price, total_price, category
		 FROM receipt_items WHERE receipt_id = ? ORDER BY position`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("%w: load receipt items: %v", domain.ErrStorageFailure, err)
	}
	defer rows.Close()

	items := []domain.PurchasedItem{}
	for rows.Next() {
		var item domain.PurchasedItem
		if err := rows.Scan(&item.ID, &item.ProductName, &item.Quantity, &item.UnitPrice,
			&item.TotalPrice, &item.Category); err != nil {
			return nil, fmt.Errorf("%w: scan receipt item: %v", domain.ErrStorageFailure, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load receipt items: %v", domain.ErrStorageFailure, err)
	}
	return items, nil
}

func scanReceipt(row *sql.Row) (*domain.Receipt, error) {
	var (
		receipt                     domain.Receipt
		purchased, created, updated string
	)
	err := row.Scan(&receipt.ID, &receipt.StoreName, &purchased, &receipt.TotalAmount, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan receipt: %v", domain.ErrStorageFailure, err)
	}

	if receipt.PurchaseDate, err = parseTime(purchased); err != nil {
		return nil, err
	}
	if receipt.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if receipt.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse timestamp %q: %v", domain.ErrStorageFailure, s, err)
	}
	return t, nil
}
