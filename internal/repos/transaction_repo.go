package repos

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
)

type TransactionRepo struct{ db *sqlx.DB }

func NewTransactionRepo(db *sqlx.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Create inserts a new transaction row, generating the id. The returned
// value carries the generated id; the id doubles as the gateway reference.
func (r *TransactionRepo) Create(t domain.Transaction) (domain.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	_, err := r.db.Exec(`
	  INSERT INTO transactions(id, product_id, customer_id, delivery_id, amount,
	    status, wompi_reference, quantity, stock_reserved)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProductID, t.CustomerID, t.DeliveryID, t.Amount,
		t.Status, t.GatewayReference, t.Quantity, t.StockReserved)
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

// FindByID returns (nil, nil) when no transaction matches.
func (r *TransactionRepo) FindByID(id string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.Get(&t, `
	  SELECT id, product_id, customer_id, delivery_id, amount, status,
	         wompi_reference, quantity, stock_reserved,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM transactions
	  WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Save replaces the mutable columns of the full row.
func (r *TransactionRepo) Save(t domain.Transaction) error {
	_, err := r.db.Exec(`
	  UPDATE transactions
	  SET customer_id = ?, delivery_id = ?, amount = ?, status = ?,
	      wompi_reference = ?, quantity = ?, stock_reserved = ?,
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, t.CustomerID, t.DeliveryID, t.Amount, t.Status,
		t.GatewayReference, t.Quantity, t.StockReserved, t.ID)
	return err
}

func (r *TransactionRepo) SetStatus(id string, status domain.Status) error {
	_, err := r.db.Exec(`
	  UPDATE transactions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, id)
	return err
}

func (r *TransactionRepo) SetGatewayReference(id, ref string) error {
	_, err := r.db.Exec(`
	  UPDATE transactions SET wompi_reference = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, ref, id)
	return err
}

// ClaimReservation atomically flips the reservation flag for a transaction
// still sitting at the given status. The conditional UPDATE plus
// affected-row check is the dedupe for concurrent duplicate callbacks:
// exactly one delivery claims the flag, and only the claimant may touch
// stock. Zero affected rows means another delivery won (or the status
// already moved on).
func (r *TransactionRepo) ClaimReservation(id string, at domain.Status) (bool, error) {
	res, err := r.db.Exec(`
	  UPDATE transactions
	  SET stock_reserved = 1, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND status = ? AND stock_reserved = 0
	`, id, at)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ReleaseReservation undoes a claim whose stock decrement failed, so a
// later redelivery can try again.
func (r *TransactionRepo) ReleaseReservation(id string) error {
	_, err := r.db.Exec(`
	  UPDATE transactions
	  SET stock_reserved = 0, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, id)
	return err
}

// MarkDeclined is the compensation write: the reservation was restored, so
// the flag is cleared alongside the terminal status.
func (r *TransactionRepo) MarkDeclined(id string) error {
	_, err := r.db.Exec(`
	  UPDATE transactions
	  SET status = ?, stock_reserved = 0, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, domain.StatusDeclined, id)
	return err
}
