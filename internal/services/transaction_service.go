package services

import (
	"context"
	"fmt"
	"strconv"

	"payflow/internal/domain"
	"payflow/internal/repos"
)

// TransactionService owns the transaction lifecycle outside the charge
// call itself: eager pending-transaction creation and reconciliation of
// gateway-reported final statuses with local stock.
type TransactionService struct {
	Products     *repos.ProductRepo
	Transactions *repos.TransactionRepo
}

func NewTransactionService(products *repos.ProductRepo, transactions *repos.TransactionRepo) *TransactionService {
	return &TransactionService{Products: products, Transactions: transactions}
}

// Create reserves stock and persists a PENDING transaction without
// charging; the charge happens out of band and lands later through
// UpdateStatus.
func (s *TransactionService) Create(ctx context.Context, productID string, quantity int) (domain.Transaction, error) {
	if quantity < 1 {
		return domain.Transaction{}, fmt.Errorf("quantity must be at least 1: %w", domain.ErrInsufficientStock)
	}

	product, err := s.Products.FindActiveByID(productID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if product == nil {
		return domain.Transaction{}, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	if product.Stock < quantity {
		return domain.Transaction{}, fmt.Errorf("product %s has %d of %d requested: %w",
			product.ID, product.Stock, quantity, domain.ErrInsufficientStock)
	}

	if err := s.Products.ReserveStock(product.ID, quantity); err != nil {
		return domain.Transaction{}, err
	}

	amount := product.Price * int64(quantity)
	return s.Transactions.Create(domain.Transaction{
		ProductID:     product.ID,
		Quantity:      quantity,
		Amount:        strconv.FormatInt(amount, 10),
		Status:        domain.StatusPending,
		StockReserved: true,
	})
}

// Get looks up a transaction for the status page and client polling.
func (s *TransactionService) Get(ctx context.Context, id string) (domain.Transaction, error) {
	txn, err := s.Transactions.FindByID(id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if txn == nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return *txn, nil
}

// UpdateStatus applies an authoritative final status reported by the
// gateway (webhook or poll). Redelivering the current status is a no-op
// with zero writes. Only a transition into APPROVED touches stock, and
// only when the checkout never reserved it; every other terminal status
// writes the status alone.
func (s *TransactionService) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	txn, err := s.Transactions.FindByID(id)
	if err != nil {
		return err
	}
	if txn == nil {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}

	if txn.Status == status {
		return nil
	}

	if status == domain.StatusApproved {
		if txn.StockReserved {
			return s.Transactions.SetStatus(id, status)
		}

		// Claim the reservation flag before touching stock: concurrent
		// duplicate approvals race on this conditional UPDATE and exactly
		// one wins, so the decrement below cannot double-apply. The loser
		// treats the redelivery as a no-op.
		claimed, err := s.Transactions.ClaimReservation(id, txn.Status)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}

		if err := s.approveClaimed(txn); err != nil {
			// Status was never written; hand the claim back so a later
			// redelivery can retry once stock allows.
			if rerr := s.Transactions.ReleaseReservation(id); rerr != nil {
				return rerr
			}
			return err
		}
		return s.Transactions.SetStatus(id, domain.StatusApproved)
	}

	return s.Transactions.SetStatus(id, status)
}

// approveClaimed re-validates and decrements stock for a transaction whose
// reservation flag this delivery just claimed.
func (s *TransactionService) approveClaimed(txn *domain.Transaction) error {
	product, err := s.Products.FindActiveByID(txn.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("product %s: %w", txn.ProductID, domain.ErrNotFound)
	}
	if product.Stock < txn.Quantity {
		return fmt.Errorf("product %s has %d of %d required: %w",
			product.ID, product.Stock, txn.Quantity, domain.ErrInsufficientStock)
	}
	return s.Products.ReserveStock(product.ID, txn.Quantity)
}
