package handlers

import (
	"context"

	"github.com/jmoiron/sqlx"

	"payflow/internal/config"
	"payflow/internal/repos"
	"payflow/internal/services"
)

type Deps struct {
	ProductHandler     *ProductHandler
	PaymentHandler     *PaymentHandler
	TransactionHandler *TransactionHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, gw services.PaymentGateway, baseCtx context.Context) *Deps {
	productRepo := repos.NewProductRepo(db)
	txnRepo := repos.NewTransactionRepo(db)

	catalogSvc := services.NewProductService(productRepo)
	txnSvc := services.NewTransactionService(productRepo, txnRepo)
	paySvc := services.NewPaymentService(productRepo, txnRepo, gw)
	poller := services.NewStatusPoller(gw, txnSvc, cfg.PollInterval, cfg.PollMaxAttempts)

	return &Deps{
		ProductHandler:     &ProductHandler{Catalog: catalogSvc},
		PaymentHandler:     &PaymentHandler{Payments: paySvc, Poller: poller, BaseCtx: baseCtx},
		TransactionHandler: &TransactionHandler{Transactions: txnSvc},
	}
}
