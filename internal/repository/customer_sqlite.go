package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"minimart/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteCustomerStore implements CustomerStore on an embedded SQLite
// database. WAL mode keeps concurrent reads cheap; the single service
// lock above this layer serializes writes anyway.
type SQLiteCustomerStore struct {
	db *sql.DB
}

// NewSQLiteCustomerStore opens (and if needed initializes) the database
// at dbPath.
func NewSQLiteCustomerStore(dbPath string) (*SQLiteCustomerStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createCustomerTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteCustomerStore] Initialized with database: %s", dbPath)
	return &SQLiteCustomerStore{db: db}, nil
}

func createCustomerTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS buyers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		password TEXT NOT NULL,
		purchases_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS sellers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		password TEXT NOT NULL,
		feedback_up INTEGER NOT NULL DEFAULT 0,
		feedback_down INTEGER NOT NULL DEFAULT 0,
		items_sold INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS cart_items (
		buyer_id INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (buyer_id, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_buyers_name ON buyers(name);
	CREATE INDEX IF NOT EXISTS idx_sellers_name ON sellers(name);
	`
	_, err := db.Exec(query)
	return err
}

// CreateBuyer stores a buyer record and returns its assigned id.
func (s *SQLiteCustomerStore) CreateBuyer(ctx context.Context, name, password string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO buyers(name, password, purchases_count) VALUES (?, ?, 0)`, name, password)
	if err != nil {
		return 0, fmt.Errorf("failed to insert buyer: %w", err)
	}
	return res.LastInsertId()
}

// CreateSeller stores a seller record and returns its assigned id.
func (s *SQLiteCustomerStore) CreateSeller(ctx context.Context, name, password string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sellers(name, password, feedback_up, feedback_down, items_sold) VALUES (?, ?, 0, 0, 0)`,
		name, password)
	if err != nil {
		return 0, fmt.Errorf("failed to insert seller: %w", err)
	}
	return res.LastInsertId()
}

// GetBuyer returns a buyer by id.
func (s *SQLiteCustomerStore) GetBuyer(ctx context.Context, id int64) (*model.Buyer, error) {
	var b model.Buyer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, password, purchases_count FROM buyers WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.Password, &b.PurchasesCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer: %w", err)
	}
	return &b, nil
}

// GetSeller returns a seller by id.
func (s *SQLiteCustomerStore) GetSeller(ctx context.Context, id int64) (*model.Seller, error) {
	var sl model.Seller
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, password, feedback_up, feedback_down, items_sold FROM sellers WHERE id = ?`, id).
		Scan(&sl.ID, &sl.Name, &sl.Password, &sl.FeedbackUp, &sl.FeedbackDown, &sl.ItemsSold)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return &sl, nil
}

// FindAccountByName returns the lowest-id account with the given name.
func (s *SQLiteCustomerStore) FindAccountByName(ctx context.Context, role, name string) (int64, string, error) {
	table, err := roleTable(role)
	if err != nil {
		return 0, "", err
	}

	var id int64
	var password string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, password FROM `+table+` WHERE name = ? ORDER BY id LIMIT 1`, name).
		Scan(&id, &password)
	if err == sql.ErrNoRows {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to find account: %w", err)
	}
	return id, password, nil
}

// CartQuantity returns the persisted quantity, zero when absent.
func (s *SQLiteCustomerStore) CartQuantity(ctx context.Context, buyerID int64, itemID string) (int, error) {
	var qty int
	err := s.db.QueryRowContext(ctx,
		`SELECT quantity FROM cart_items WHERE buyer_id = ? AND item_id = ?`, buyerID, itemID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cart quantity: %w", err)
	}
	return qty, nil
}

// SetCartQuantity upserts a cart entry.
func (s *SQLiteCustomerStore) SetCartQuantity(ctx context.Context, buyerID int64, itemID string, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items(buyer_id, item_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT(buyer_id, item_id) DO UPDATE SET quantity = excluded.quantity`,
		buyerID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart entry: %w", err)
	}
	return nil
}

// DeleteCartEntry removes one cart entry.
func (s *SQLiteCustomerStore) DeleteCartEntry(ctx context.Context, buyerID int64, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE buyer_id = ? AND item_id = ?`, buyerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart entry: %w", err)
	}
	return nil
}

// GetCart returns the full cart mapping for a buyer.
func (s *SQLiteCustomerStore) GetCart(ctx context.Context, buyerID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, quantity FROM cart_items WHERE buyer_id = ?`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	defer rows.Close()

	cart := make(map[string]int)
	for rows.Next() {
		var itemID string
		var qty int
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan cart row: %w", err)
		}
		cart[itemID] = qty
	}
	return cart, rows.Err()
}

// ClearCart empties a buyer's cart.
func (s *SQLiteCustomerStore) ClearCart(ctx context.Context, buyerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE buyer_id = ?`, buyerID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Stats returns row counts for the debug endpoint.
func (s *SQLiteCustomerStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "sqlite"}
	for _, table := range []string{"buyers", "sellers", "cart_items"} {
		var count int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[table] = count
	}
	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteCustomerStore) Close() error {
	return s.db.Close()
}

func roleTable(role string) (string, error) {
	switch role {
	case model.RoleBuyer:
		return "buyers", nil
	case model.RoleSeller:
		return "sellers", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

var _ CustomerStore = (*SQLiteCustomerStore)(nil)
