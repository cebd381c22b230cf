package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"minimart/internal/model"
)

// MySQLProductStore implements ProductStore on a shared MySQL server.
type MySQLProductStore struct {
	db *sql.DB
}

// NewMySQLProductStore initializes the schema and wraps db.
func NewMySQLProductStore(db *sql.DB) (*MySQLProductStore, error) {
	if err := createProductTablesMySQL(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &MySQLProductStore{db: db}, nil
}

func createProductTablesMySQL(db *sql.DB) error {
	// `condition` is a reserved word in MySQL.
	queries := []string{
		"CREATE TABLE IF NOT EXISTS items (" +
			"rowid_order BIGINT AUTO_INCREMENT PRIMARY KEY, " +
			"item_id VARCHAR(64) NOT NULL UNIQUE, " +
			"name TEXT NOT NULL, " +
			"category INT NOT NULL, " +
			"seq INT NOT NULL, " +
			"keywords TEXT NOT NULL, " +
			"`condition` TEXT NOT NULL, " +
			"price DOUBLE NOT NULL, " +
			"quantity INT NOT NULL, " +
			"seller_id BIGINT NOT NULL, " +
			"feedback_up BIGINT NOT NULL DEFAULT 0, " +
			"feedback_down BIGINT NOT NULL DEFAULT 0, " +
			"INDEX idx_items_category (category), " +
			"INDEX idx_items_seller (seller_id))",
		"CREATE TABLE IF NOT EXISTS category_counters (" +
			"category INT PRIMARY KEY, " +
			"last_seq INT NOT NULL)",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

const itemColumnsMySQL = "item_id, name, category, seq, keywords, `condition`, price, quantity, seller_id, feedback_up, feedback_down"

// NextItemSeq advances and returns the per-category sequence counter,
// using the LAST_INSERT_ID trick to read the updated value atomically.
func (s *MySQLProductStore) NextItemSeq(ctx context.Context, category int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO category_counters(category, last_seq) VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE last_seq = LAST_INSERT_ID(last_seq + 1)`, category)
	if err != nil {
		return 0, fmt.Errorf("failed to advance category counter: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(seq), nil
}

// InsertItem stores a new catalog item.
func (s *MySQLProductStore) InsertItem(ctx context.Context, item *model.Item) error {
	keywords, err := json.Marshal(item.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO items("+itemColumnsMySQL+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.Name, item.Category, item.Seq, string(keywords),
		item.Condition, item.Price, item.Quantity, item.SellerID,
		item.Feedback.Up, item.Feedback.Down)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem returns an item by id.
func (s *MySQLProductStore) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumnsMySQL+" FROM items WHERE item_id = ?", itemID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// SetItemPrice updates an item's price.
func (s *MySQLProductStore) SetItemPrice(ctx context.Context, itemID string, price float64) error {
	return s.updateItem(ctx, `UPDATE items SET price = ? WHERE item_id = ?`, price, itemID)
}

// SetItemQuantity updates an item's units-for-sale count.
func (s *MySQLProductStore) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	return s.updateItem(ctx, `UPDATE items SET quantity = ? WHERE item_id = ?`, quantity, itemID)
}

func (s *MySQLProductStore) updateItem(ctx context.Context, query string, args ...any) error {
	// RowsAffected is zero both for a missing row and for a no-op update,
	// so existence is checked first. The service lock serializes callers.
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM items WHERE item_id = ?`, args[len(args)-1]).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// AddFeedback increments one feedback counter and returns the tally.
func (s *MySQLProductStore) AddFeedback(ctx context.Context, itemID string, up bool) (model.Feedback, error) {
	column := "feedback_down"
	if up {
		column = "feedback_up"
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET "+column+" = "+column+" + 1 WHERE item_id = ?", itemID)
	if err != nil {
		return model.Feedback{}, fmt.Errorf("failed to add feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Feedback{}, err
	}
	if affected == 0 {
		return model.Feedback{}, ErrNotFound
	}

	var fb model.Feedback
	err = s.db.QueryRowContext(ctx,
		`SELECT feedback_up, feedback_down FROM items WHERE item_id = ?`, itemID).
		Scan(&fb.Up, &fb.Down)
	if err != nil {
		return model.Feedback{}, fmt.Errorf("failed to read feedback: %w", err)
	}
	return fb, nil
}

// ItemsBySeller returns all items owned by a seller in storage order.
func (s *MySQLProductStore) ItemsBySeller(ctx context.Context, sellerID int64) ([]*model.Item, error) {
	return s.queryItems(ctx,
		"SELECT "+itemColumnsMySQL+" FROM items WHERE seller_id = ? ORDER BY rowid_order", sellerID)
}

// ItemsInStock returns items with quantity > 0 in storage order.
func (s *MySQLProductStore) ItemsInStock(ctx context.Context, category *int) ([]*model.Item, error) {
	if category != nil {
		return s.queryItems(ctx,
			"SELECT "+itemColumnsMySQL+" FROM items WHERE quantity > 0 AND category = ? ORDER BY rowid_order",
			*category)
	}
	return s.queryItems(ctx,
		"SELECT "+itemColumnsMySQL+" FROM items WHERE quantity > 0 ORDER BY rowid_order")
}

func (s *MySQLProductStore) queryItems(ctx context.Context, query string, args ...any) ([]*model.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns row counts for the debug endpoint.
func (s *MySQLProductStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "mysql"}

	var items int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&items); err != nil {
		return nil, err
	}
	stats["items"] = items

	var categories int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM category_counters`).Scan(&categories); err != nil {
		return nil, err
	}
	stats["categories"] = categories

	return stats, nil
}

// Close closes the database connection.
func (s *MySQLProductStore) Close() error {
	return s.db.Close()
}

var _ ProductStore = (*MySQLProductStore)(nil)
