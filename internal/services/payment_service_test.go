package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"payflow/internal/domain"
	"payflow/internal/repos"
	"payflow/internal/services"
	"payflow/internal/wompi"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	schema := `
	CREATE TABLE products(id TEXT PRIMARY KEY, name TEXT, description TEXT,
	  price INTEGER, stock INTEGER, active INTEGER, created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);
	CREATE TABLE transactions(id TEXT PRIMARY KEY, product_id TEXT, customer_id TEXT,
	  delivery_id TEXT, amount TEXT, status TEXT, wompi_reference TEXT, quantity INTEGER,
	  stock_reserved INTEGER DEFAULT 0, created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);

	INSERT INTO products(id,name,description,price,stock,active) VALUES
	  ('p-1','Wireless Headphones','Noise cancelling',200,5,1),
	  ('p-hidden','Retired Product','no longer sold',100,3,0);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	return db
}

// fakeGateway substitutes deterministic gateway behavior; unset hooks
// succeed with zero values.
type fakeGateway struct {
	tokens      func(context.Context) (wompi.AcceptanceToken, error)
	charge      func(context.Context, wompi.CardPaymentParams) (wompi.CardPayment, error)
	lookup      func(context.Context, string) (wompi.CardPayment, error)
	chargeCalls int
	lastParams  wompi.CardPaymentParams
}

func (f *fakeGateway) GetAcceptanceToken(ctx context.Context) (wompi.AcceptanceToken, error) {
	if f.tokens != nil {
		return f.tokens(ctx)
	}
	return wompi.AcceptanceToken{AcceptanceToken: "tok-a", AcceptanceTokenPersonal: "tok-b"}, nil
}

func (f *fakeGateway) CreateCardPayment(ctx context.Context, p wompi.CardPaymentParams) (wompi.CardPayment, error) {
	f.chargeCalls++
	f.lastParams = p
	if f.charge != nil {
		return f.charge(ctx, p)
	}
	return wompi.CardPayment{ID: "wompi-1", Status: "APPROVED"}, nil
}

func (f *fakeGateway) GetTransaction(ctx context.Context, id string) (wompi.CardPayment, error) {
	if f.lookup != nil {
		return f.lookup(ctx, id)
	}
	return wompi.CardPayment{ID: id, Status: "APPROVED"}, nil
}

func stock(t *testing.T, db *sqlx.DB, id string) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT stock FROM products WHERE id = ?`, id); err != nil {
		t.Fatal(err)
	}
	return n
}

func txnCount(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM transactions`); err != nil {
		t.Fatal(err)
	}
	return n
}

func newPaymentService(db *sqlx.DB, gw services.PaymentGateway) (*services.PaymentService, *repos.TransactionRepo) {
	productRepo := repos.NewProductRepo(db)
	txnRepo := repos.NewTransactionRepo(db)
	return services.NewPaymentService(productRepo, txnRepo, gw), txnRepo
}

func TestPay_Success(t *testing.T) {
	db := memdb(t)
	gw := &fakeGateway{}
	svc, txnRepo := newPaymentService(db, gw)

	res, err := svc.Pay(context.Background(), services.PayRequest{
		ProductID: "p-1", Quantity: 2, CardToken: "card", Email: "user@test.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.WompiTransactionID != "wompi-1" || res.Status != "APPROVED" || res.TransactionID == "" {
		t.Fatalf("bad result: %+v", res)
	}
	if got := stock(t, db, "p-1"); got != 3 {
		t.Fatalf("want stock 3 after reserving 2 of 5, got %d", got)
	}

	txn, err := txnRepo.FindByID(res.TransactionID)
	if err != nil || txn == nil {
		t.Fatalf("transaction not persisted: %v %v", txn, err)
	}
	if txn.Amount != "400" {
		t.Fatalf("amount must be price*qty as string, got %q", txn.Amount)
	}
	if !txn.GatewayReference.Valid || txn.GatewayReference.String != "wompi-1" {
		t.Fatalf("gateway reference not recorded: %+v", txn)
	}
	if !txn.StockReserved {
		t.Fatal("orchestrator must record its reservation")
	}

	// charge carried amount in cents and the transaction id as reference
	if gw.lastParams.AmountInCents != 40000 {
		t.Fatalf("want 40000 cents, got %d", gw.lastParams.AmountInCents)
	}
	if gw.lastParams.Reference != res.TransactionID {
		t.Fatalf("reference must be the transaction id, got %q", gw.lastParams.Reference)
	}
	if gw.chargeCalls != 1 {
		t.Fatalf("want exactly one charge, got %d", gw.chargeCalls)
	}
}

func TestPay_GatewayFailureCompensates(t *testing.T) {
	db := memdb(t)
	gw := &fakeGateway{
		charge: func(context.Context, wompi.CardPaymentParams) (wompi.CardPayment, error) {
			return wompi.CardPayment{}, errors.New("gateway down")
		},
	}
	svc, _ := newPaymentService(db, gw)

	_, err := svc.Pay(context.Background(), services.PayRequest{
		ProductID: "p-1", Quantity: 2, CardToken: "card", Email: "user@test.com",
	})
	if !errors.Is(err, domain.ErrPaymentProcessing) {
		t.Fatalf("want ErrPaymentProcessing, got %v", err)
	}

	if got := stock(t, db, "p-1"); got != 5 {
		t.Fatalf("stock must be restored to 5, got %d", got)
	}

	var txn domain.Transaction
	if err := db.Get(&txn, `SELECT id, product_id, amount, status, quantity, stock_reserved,
	  created_at, COALESCE(updated_at,'') AS updated_at FROM transactions LIMIT 1`); err != nil {
		t.Fatal(err)
	}
	if txn.Status != domain.StatusDeclined {
		t.Fatalf("want DECLINED, got %s", txn.Status)
	}
	if txn.StockReserved {
		t.Fatal("compensation must clear the reservation flag")
	}
}

func TestPay_TokenFetchFailureCompensates(t *testing.T) {
	db := memdb(t)
	gw := &fakeGateway{
		tokens: func(context.Context) (wompi.AcceptanceToken, error) {
			return wompi.AcceptanceToken{}, errors.New("merchant endpoint unreachable")
		},
	}
	svc, _ := newPaymentService(db, gw)

	_, err := svc.Pay(context.Background(), services.PayRequest{
		ProductID: "p-1", Quantity: 1, CardToken: "card", Email: "user@test.com",
	})
	if !errors.Is(err, domain.ErrPaymentProcessing) {
		t.Fatalf("want ErrPaymentProcessing, got %v", err)
	}
	if got := stock(t, db, "p-1"); got != 5 {
		t.Fatalf("stock must be restored, got %d", got)
	}
	if gw.chargeCalls != 0 {
		t.Fatal("no charge may be submitted without acceptance tokens")
	}
}

func TestPay_InsufficientStockShortCircuits(t *testing.T) {
	db := memdb(t)
	gw := &fakeGateway{}
	svc, _ := newPaymentService(db, gw)

	_, err := svc.Pay(context.Background(), services.PayRequest{
		ProductID: "p-1", Quantity: 6, CardToken: "card", Email: "user@test.com",
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}

	if got := stock(t, db, "p-1"); got != 5 {
		t.Fatalf("no writes expected, stock is %d", got)
	}
	if n := txnCount(t, db); n != 0 {
		t.Fatalf("no transaction may be created, found %d", n)
	}
	if gw.chargeCalls != 0 {
		t.Fatal("no charge may be attempted")
	}
}

func TestPay_UnknownOrInactiveProduct(t *testing.T) {
	db := memdb(t)
	gw := &fakeGateway{}
	svc, _ := newPaymentService(db, gw)

	for _, id := range []string{"missing", "p-hidden"} {
		_, err := svc.Pay(context.Background(), services.PayRequest{
			ProductID: id, Quantity: 1, CardToken: "card", Email: "user@test.com",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", id, err)
		}
	}
	if n := txnCount(t, db); n != 0 {
		t.Fatalf("no writes expected, found %d transactions", n)
	}
}

func TestPay_AcceptanceTokenProxy(t *testing.T) {
	db := memdb(t)
	gw := &fakeGateway{}
	svc, _ := newPaymentService(db, gw)

	tokens, err := svc.AcceptanceToken(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tokens.AcceptanceToken != "tok-a" || tokens.AcceptanceTokenPersonal != "tok-b" {
		t.Fatalf("bad tokens: %+v", tokens)
	}
}
