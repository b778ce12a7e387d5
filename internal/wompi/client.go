// Package wompi wraps the Wompi card-payment API: merchant acceptance
// tokens, signed card charges, and transaction status lookups.
package wompi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"payflow/internal/domain"
)

// Currency is fixed: Wompi charges in Colombian pesos.
const Currency = "COP"

type Config struct {
	BaseURL      string
	PublicKey    string
	PrivateKey   string
	IntegrityKey string
}

// Validate catches missing signing material at startup instead of
// mid-transaction.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: WOMPI_URL is not set", domain.ErrConfiguration)
	case c.PublicKey == "":
		return fmt.Errorf("%w: WOMPI_PUBLIC_KEY is not set", domain.ErrConfiguration)
	case c.PrivateKey == "":
		return fmt.Errorf("%w: WOMPI_PRIVATE_KEY is not set", domain.ErrConfiguration)
	case c.IntegrityKey == "":
		return fmt.Errorf("%w: WOMPI_INTEGRITY_KEY is not set", domain.ErrConfiguration)
	}
	return nil
}

type AcceptanceToken struct {
	AcceptanceToken         string `json:"acceptanceToken"`
	AcceptanceTokenPersonal string `json:"acceptanceTokenPersonal"`
}

type CardPaymentParams struct {
	AmountInCents           int64
	Email                   string
	CardToken               string
	Reference               string
	AcceptanceToken         string
	AcceptanceTokenPersonal string
}

// CardPayment is the gateway's view of a charge.
type CardPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient fails fast on incomplete credentials so an unconfigured
// deployment never gets as far as reserving stock.
func NewClient(cfg Config, hc *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, http: hc}, nil
}

// Signature is the integrity hash Wompi verifies on each charge:
// sha256 hex over reference, amount in cents, currency and the integrity
// key concatenated in that exact order.
func Signature(reference string, amountInCents int64, currency, integrityKey string) string {
	raw := reference + strconv.FormatInt(amountInCents, 10) + currency + integrityKey
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type merchantResponse struct {
	Data struct {
		PresignedAcceptance struct {
			AcceptanceToken string `json:"acceptance_token"`
		} `json:"presigned_acceptance"`
		PresignedPersonalDataAuth struct {
			AcceptanceToken string `json:"acceptance_token"`
		} `json:"presigned_personal_data_auth"`
	} `json:"data"`
}

type transactionResponse struct {
	Data CardPayment `json:"data"`
}

// GetAcceptanceToken fetches the terms-acceptance token pair from the
// merchant endpoint.
func (c *Client) GetAcceptanceToken(ctx context.Context) (AcceptanceToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/merchants/"+c.cfg.PublicKey, nil)
	if err != nil {
		return AcceptanceToken{}, err
	}

	var body merchantResponse
	if err := c.do(req, &body); err != nil {
		return AcceptanceToken{}, fmt.Errorf("wompi merchant fetch: %w", err)
	}

	return AcceptanceToken{
		AcceptanceToken:         body.Data.PresignedAcceptance.AcceptanceToken,
		AcceptanceTokenPersonal: body.Data.PresignedPersonalDataAuth.AcceptanceToken,
	}, nil
}

// CreateCardPayment submits one signed charge. No retries here: the
// orchestrator owns retry policy, and its current policy is a single
// attempt per checkout.
func (c *Client) CreateCardPayment(ctx context.Context, p CardPaymentParams) (CardPayment, error) {
	payload := map[string]any{
		"amount_in_cents": p.AmountInCents,
		"currency":        Currency,
		"customer_email":  p.Email,
		"payment_method": map[string]any{
			"type":         "CARD",
			"token":        p.CardToken,
			"installments": 1,
		},
		"reference":            p.Reference,
		"acceptance_token":     p.AcceptanceToken,
		"accept_personal_auth": p.AcceptanceTokenPersonal,
		"signature":            Signature(p.Reference, p.AmountInCents, Currency, c.cfg.IntegrityKey),
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return CardPayment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/transactions", bytes.NewReader(buf))
	if err != nil {
		return CardPayment{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.PrivateKey)

	var body transactionResponse
	if err := c.do(req, &body); err != nil {
		return CardPayment{}, fmt.Errorf("wompi charge %s: %w", p.Reference, err)
	}
	return body.Data, nil
}

// GetTransaction looks up the settlement status of a previously submitted
// charge; used by the status poller.
func (c *Client) GetTransaction(ctx context.Context, id string) (CardPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/transactions/"+id, nil)
	if err != nil {
		return CardPayment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.PrivateKey)

	var body transactionResponse
	if err := c.do(req, &body); err != nil {
		return CardPayment{}, fmt.Errorf("wompi transaction %s: %w", id, err)
	}
	return body.Data, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, gatewayMessage(raw))
	}
	return json.Unmarshal(raw, out)
}

// gatewayMessage digs the human-readable reason out of a Wompi error body.
func gatewayMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Reason  string `json:"reason"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Error.Message != "":
			return body.Error.Message
		case body.Error.Reason != "":
			return body.Error.Reason
		case body.Message != "":
			return body.Message
		}
	}
	return "unknown error from Wompi"
}
