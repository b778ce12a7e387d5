package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"payflow/internal/domain"
	"payflow/internal/repos"
	"payflow/internal/wompi"
)

// PaymentGateway is the slice of the Wompi client the services need;
// tests substitute a deterministic double.
type PaymentGateway interface {
	GetAcceptanceToken(ctx context.Context) (wompi.AcceptanceToken, error)
	CreateCardPayment(ctx context.Context, p wompi.CardPaymentParams) (wompi.CardPayment, error)
	GetTransaction(ctx context.Context, id string) (wompi.CardPayment, error)
}

type PayRequest struct {
	ProductID string
	Quantity  int
	CardToken string
	Email     string
}

type PayResult struct {
	TransactionID      string `json:"transactionId"`
	WompiTransactionID string `json:"wompiTransactionId"`
	Status             string `json:"status"`
}

// PaymentService runs a single checkout attempt: reserve stock, persist a
// pending transaction, charge the card, and either keep the reservation or
// compensate it.
type PaymentService struct {
	Products     *repos.ProductRepo
	Transactions *repos.TransactionRepo
	Gateway      PaymentGateway
}

func NewPaymentService(products *repos.ProductRepo, transactions *repos.TransactionRepo, gw PaymentGateway) *PaymentService {
	return &PaymentService{Products: products, Transactions: transactions, Gateway: gw}
}

// AcceptanceToken proxies the gateway token fetch for UI pre-flight; no
// side effects.
func (s *PaymentService) AcceptanceToken(ctx context.Context) (wompi.AcceptanceToken, error) {
	return s.Gateway.GetAcceptanceToken(ctx)
}

// Pay executes the checkout stages in order. Failures before the
// reservation short-circuit with zero writes; failures once the charge is
// attempted restore the stock and decline the transaction before
// surfacing ErrPaymentProcessing.
func (s *PaymentService) Pay(ctx context.Context, req PayRequest) (PayResult, error) {
	if req.Quantity < 1 {
		return PayResult{}, fmt.Errorf("quantity must be at least 1: %w", domain.ErrInsufficientStock)
	}

	product, err := s.Products.FindActiveByID(req.ProductID)
	if err != nil {
		return PayResult{}, err
	}
	if product == nil {
		return PayResult{}, fmt.Errorf("product %s: %w", req.ProductID, domain.ErrNotFound)
	}
	if product.Stock < req.Quantity {
		return PayResult{}, fmt.Errorf("product %s has %d of %d requested: %w",
			product.ID, product.Stock, req.Quantity, domain.ErrInsufficientStock)
	}

	// Optimistic reservation: decrement before the charge so the gateway
	// round-trip cannot oversell. The conditional UPDATE re-checks stock,
	// so a concurrent checkout that won the race surfaces here.
	if err := s.Products.ReserveStock(product.ID, req.Quantity); err != nil {
		return PayResult{}, err
	}

	amount := product.Price * int64(req.Quantity)

	txn, err := s.Transactions.Create(domain.Transaction{
		ProductID:     product.ID,
		Quantity:      req.Quantity,
		Amount:        strconv.FormatInt(amount, 10),
		Status:        domain.StatusPending,
		StockReserved: true,
	})
	if err != nil {
		return PayResult{}, err
	}

	charge, err := s.charge(ctx, txn, req, amount*100)
	if err != nil {
		s.compensate(product.ID, req.Quantity, txn.ID)
		return PayResult{}, fmt.Errorf("%w: %v", domain.ErrPaymentProcessing, err)
	}

	return PayResult{
		TransactionID:      txn.ID,
		WompiTransactionID: charge.ID,
		Status:             charge.Status,
	}, nil
}

// charge covers every step past the point of no return: token fetch,
// charge submission and persisting the gateway reference. Any error out
// of here means the reservation must be compensated.
func (s *PaymentService) charge(ctx context.Context, txn domain.Transaction, req PayRequest, amountInCents int64) (wompi.CardPayment, error) {
	tokens, err := s.Gateway.GetAcceptanceToken(ctx)
	if err != nil {
		return wompi.CardPayment{}, err
	}

	charge, err := s.Gateway.CreateCardPayment(ctx, wompi.CardPaymentParams{
		AmountInCents:           amountInCents,
		Email:                   req.Email,
		CardToken:               req.CardToken,
		Reference:               txn.ID,
		AcceptanceToken:         tokens.AcceptanceToken,
		AcceptanceTokenPersonal: tokens.AcceptanceTokenPersonal,
	})
	if err != nil {
		return wompi.CardPayment{}, err
	}

	if err := s.Transactions.SetGatewayReference(txn.ID, charge.ID); err != nil {
		return wompi.CardPayment{}, err
	}
	return charge, nil
}

// compensate restores the reserved stock and declines the transaction.
// Failures here are logged but never replace the original charge error:
// the caller must still see ErrPaymentProcessing.
func (s *PaymentService) compensate(productID string, qty int, transactionID string) {
	if err := s.Products.RestoreStock(productID, qty); err != nil {
		log.Printf("[compensate] restore stock for product %s (tx %s): %v", productID, transactionID, err)
	}
	if err := s.Transactions.MarkDeclined(transactionID); err != nil {
		log.Printf("[compensate] decline transaction %s: %v", transactionID, err)
	}
}
