package domain

import "database/sql"

type Product struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Price       int64  `db:"price" json:"price"` // COP, whole pesos; x100 for gateway cents
	Stock       int    `db:"stock" json:"stock"`
	Active      bool   `db:"active" json:"active"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt,omitempty"`
}

// Transaction records one checkout attempt against a product.
// Amount is price*quantity fixed at creation and stored as a string, never
// recomputed and never pushed through float math. StockReserved marks that
// this transaction already holds a stock reservation, so the reconciler
// must not decrement a second time on approval.
type Transaction struct {
	ID               string         `db:"id"`
	ProductID        string         `db:"product_id"`
	CustomerID       sql.NullString `db:"customer_id"`
	DeliveryID       sql.NullString `db:"delivery_id"`
	Amount           string         `db:"amount"`
	Status           Status         `db:"status"`
	GatewayReference sql.NullString `db:"wompi_reference"`
	Quantity         int            `db:"quantity"`
	StockReserved    bool           `db:"stock_reserved"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
}
