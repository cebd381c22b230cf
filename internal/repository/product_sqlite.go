package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"minimart/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteProductStore implements ProductStore on an embedded SQLite
// database. The category_counters table carries the per-category
// sequence high-water mark independently of the items rows.
type SQLiteProductStore struct {
	db *sql.DB
}

// NewSQLiteProductStore opens (and if needed initializes) the database
// at dbPath.
func NewSQLiteProductStore(dbPath string) (*SQLiteProductStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createProductTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteProductStore] Initialized with database: %s", dbPath)
	return &SQLiteProductStore{db: db}, nil
}

func createProductTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS items (
		rowid_order INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		category INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		keywords TEXT NOT NULL,
		condition TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		seller_id INTEGER NOT NULL,
		feedback_up INTEGER NOT NULL DEFAULT 0,
		feedback_down INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
	CREATE INDEX IF NOT EXISTS idx_items_seller ON items(seller_id);
	CREATE TABLE IF NOT EXISTS category_counters (
		category INTEGER PRIMARY KEY,
		last_seq INTEGER NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

const itemColumns = `item_id, name, category, seq, keywords, condition, price, quantity, seller_id, feedback_up, feedback_down`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var keywords string
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Seq, &keywords,
		&item.Condition, &item.Price, &item.Quantity, &item.SellerID,
		&item.Feedback.Up, &item.Feedback.Down)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &item.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	return &item, nil
}

// NextItemSeq advances and returns the per-category sequence counter.
func (s *SQLiteProductStore) NextItemSeq(ctx context.Context, category int) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO category_counters(category, last_seq) VALUES (?, 1)
		ON CONFLICT(category) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq`, category).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance category counter: %w", err)
	}
	return seq, nil
}

// InsertItem stores a new catalog item.
func (s *SQLiteProductStore) InsertItem(ctx context.Context, item *model.Item) error {
	keywords, err := json.Marshal(item.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items(`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Category, item.Seq, string(keywords),
		item.Condition, item.Price, item.Quantity, item.SellerID,
		item.Feedback.Up, item.Feedback.Down)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem returns an item by id.
func (s *SQLiteProductStore) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE item_id = ?`, itemID)
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
func (s *SQLiteProductStore) SetItemPrice(ctx context.Context, itemID string, price float64) error {
	return s.updateItem(ctx, `UPDATE items SET price = ? WHERE item_id = ?`, price, itemID)
}

// SetItemQuantity updates an item's units-for-sale count.
func (s *SQLiteProductStore) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	return s.updateItem(ctx, `UPDATE items SET quantity = ? WHERE item_id = ?`, quantity, itemID)
}

func (s *SQLiteProductStore) updateItem(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFeedback increments one feedback counter and returns the tally.
func (s *SQLiteProductStore) AddFeedback(ctx context.Context, itemID string, up bool) (model.Feedback, error) {
	column := "feedback_down"
	if up {
		column = "feedback_up"
	}
	var fb model.Feedback
	err := s.db.QueryRowContext(ctx, `
		UPDATE items SET `+column+` = `+column+` + 1 WHERE item_id = ?
		RETURNING feedback_up, feedback_down`, itemID).Scan(&fb.Up, &fb.Down)
	if err == sql.ErrNoRows {
		return model.Feedback{}, ErrNotFound
	}
	if err != nil {
		return model.Feedback{}, fmt.Errorf("failed to add feedback: %w", err)
	}
	return fb, nil
}

// ItemsBySeller returns all items owned by a seller in storage order.
func (s *SQLiteProductStore) ItemsBySeller(ctx context.Context, sellerID int64) ([]*model.Item, error) {
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE seller_id = ? ORDER BY rowid_order`, sellerID)
}

// ItemsInStock returns items with quantity > 0 in storage order.
func (s *SQLiteProductStore) ItemsInStock(ctx context.Context, category *int) ([]*model.Item, error) {
	if category != nil {
		return s.queryItems(ctx,
			`SELECT `+itemColumns+` FROM items WHERE quantity > 0 AND category = ? ORDER BY rowid_order`,
			*category)
	}
	return s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE quantity > 0 ORDER BY rowid_order`)
}

func (s *SQLiteProductStore) queryItems(ctx context.Context, query string, args ...any) ([]*model.Item, error) {
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
func (s *SQLiteProductStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "sqlite"}

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
func (s *SQLiteProductStore) Close() error {
	return s.db.Close()
}

var _ ProductStore = (*SQLiteProductStore)(nil)
