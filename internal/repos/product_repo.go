package repos

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// FindActive lists every product visible to the checkout flow.
func (r *ProductRepo) FindActive() ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, description, price, stock, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE active = 1
	  ORDER BY created_at DESC
	`)
	return out, err
}

// FindActiveByID returns (nil, nil) when no active product matches.
func (r *ProductRepo) FindActiveByID(id string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
	  SELECT id, name, description, price, stock, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE id = ? AND active = 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save replaces the full row.
func (r *ProductRepo) Save(p domain.Product) error {
	_, err := r.db.Exec(`
	  UPDATE products
	  SET name = ?, description = ?, price = ?, stock = ?, active = ?,
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, p.Name, p.Description, p.Price, p.Stock, p.Active, p.ID)
	return err
}

// ReserveStock atomically subtracts qty if enough stock exists. The single
// conditional UPDATE plus affected-row check closes the check-then-write
// race between concurrent checkouts on the same product.
// Callers resolve the product first, so zero affected rows means the stock
// ran out between the read and this write.
func (r *ProductRepo) ReserveStock(productID string, qty int) error {
	res, err := r.db.Exec(`
	  UPDATE products
	  SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND active = 1 AND stock >= ?
	`, qty, productID, qty)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("product %s: %w", productID, domain.ErrInsufficientStock)
	}
	return nil
}

// RestoreStock reverses a reservation after a failed charge.
func (r *ProductRepo) RestoreStock(productID string, qty int) error {
	res, err := r.db.Exec(`
	  UPDATE products
	  SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, qty, productID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}
