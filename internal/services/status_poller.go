package services

import (
	"context"
	"log"
	"time"

	"payflow/internal/domain"
)

// StatusPoller follows up on charges the gateway left PENDING: it polls
// the gateway on a fixed interval up to a bounded attempt budget and
// applies the first terminal status it sees through the reconciler.
// Exhausting the budget reconciles the transaction as ERROR.
type StatusPoller struct {
	Gateway      PaymentGateway
	Transactions *TransactionService
	Interval     time.Duration
	MaxAttempts  int
}

func NewStatusPoller(gw PaymentGateway, transactions *TransactionService, interval time.Duration, maxAttempts int) *StatusPoller {
	return &StatusPoller{Gateway: gw, Transactions: transactions, Interval: interval, MaxAttempts: maxAttempts}
}

// Watch blocks until a terminal status is applied, the attempt budget is
// exhausted, or ctx is cancelled. The ticker is always released; a
// cancelled watch leaves the transaction untouched.
func (p *StatusPoller) Watch(ctx context.Context, transactionID, gatewayID string) (domain.Status, error) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		charge, err := p.Gateway.GetTransaction(ctx, gatewayID)
		if err != nil {
			log.Printf("[poll] transaction %s attempt %d: %v", transactionID, attempt+1, err)
			continue
		}

		status, ok := domain.ParseStatus(charge.Status)
		if !ok || !status.Terminal() {
			continue
		}

		if err := p.Transactions.UpdateStatus(ctx, transactionID, status); err != nil {
			return "", err
		}
		return status, nil
	}

	// Budget exhausted without a settlement: record the outcome as ERROR
	// rather than leaving the transaction PENDING forever.
	if err := p.Transactions.UpdateStatus(ctx, transactionID, domain.StatusError); err != nil {
		return "", err
	}
	return domain.StatusError, nil
}
