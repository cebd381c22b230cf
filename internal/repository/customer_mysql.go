package repository

import (
	"context"
	"database/sql"
	"fmt"

	"minimart/internal/model"
)

// MySQLCustomerStore implements CustomerStore on a shared MySQL server,
// for deployments where the embedded store is not wanted. The connection
// is owned by the caller (see cmd wiring).
type MySQLCustomerStore struct {
	db *sql.DB
}

// NewMySQLCustomerStore initializes the schema and wraps db.
func NewMySQLCustomerStore(db *sql.DB) (*MySQLCustomerStore, error) {
	if err := createCustomerTablesMySQL(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &MySQLCustomerStore{db: db}, nil
}

func createCustomerTablesMySQL(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS buyers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(32) NOT NULL,
			password TEXT NOT NULL,
			purchases_count BIGINT NOT NULL DEFAULT 0,
			INDEX idx_buyers_name (name)
		)`,
		`CREATE TABLE IF NOT EXISTS sellers (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(32) NOT NULL,
			password TEXT NOT NULL,
			feedback_up BIGINT NOT NULL DEFAULT 0,
			feedback_down BIGINT NOT NULL DEFAULT 0,
			items_sold BIGINT NOT NULL DEFAULT 0,
			INDEX idx_sellers_name (name)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			buyer_id BIGINT NOT NULL,
			item_id VARCHAR(64) NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (buyer_id, item_id)
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// CreateBuyer stores a buyer record and returns its assigned id.
func (s *MySQLCustomerStore) CreateBuyer(ctx context.Context, name, password string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO buyers(name, password, purchases_count) VALUES (?, ?, 0)`, name, password)
	if err != nil {
		return 0, fmt.Errorf("failed to insert buyer: %w", err)
	}
	return res.LastInsertId()
}

// CreateSeller stores a seller record and returns its assigned id.
func (s *MySQLCustomerStore) CreateSeller(ctx context.Context, name, password string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sellers(name, password, feedback_up, feedback_down, items_sold) VALUES (?, ?, 0, 0, 0)`,
		name, password)
	if err != nil {
		return 0, fmt.Errorf("failed to insert seller: %w", err)
	}
	return res.LastInsertId()
}

// GetBuyer returns a buyer by id.
func (s *MySQLCustomerStore) GetBuyer(ctx context.Context, id int64) (*model.Buyer, error) {
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
func (s *MySQLCustomerStore) GetSeller(ctx context.Context, id int64) (*model.Seller, error) {
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
func (s *MySQLCustomerStore) FindAccountByName(ctx context.Context, role, name string) (int64, string, error) {
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
func (s *MySQLCustomerStore) CartQuantity(ctx context.Context, buyerID int64, itemID string) (int, error) {
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
func (s *MySQLCustomerStore) SetCartQuantity(ctx context.Context, buyerID int64, itemID string, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items(buyer_id, item_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`,
		buyerID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart entry: %w", err)
	}
	return nil
}

// DeleteCartEntry removes one cart entry.
func (s *MySQLCustomerStore) DeleteCartEntry(ctx context.Context, buyerID int64, itemID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE buyer_id = ? AND item_id = ?`, buyerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart entry: %w", err)
	}
	return nil
}

// GetCart returns the full cart mapping for a buyer.
func (s *MySQLCustomerStore) GetCart(ctx context.Context, buyerID int64) (map[string]int, error) {
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
func (s *MySQLCustomerStore) ClearCart(ctx context.Context, buyerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE buyer_id = ?`, buyerID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Stats returns row counts for the debug endpoint.
func (s *MySQLCustomerStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "mysql"}
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
func (s *MySQLCustomerStore) Close() error {
	return s.db.Close()
}

var _ CustomerStore = (*MySQLCustomerStore)(nil)
