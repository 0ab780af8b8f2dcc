// Package payment talks to the TapPay card gateway.
//
// Only pay-by-prime is implemented: the browser SDK turns card details into
// a one-time "prime" and the server exchanges it for a charge.  Charge makes
// exactly one outbound call and never retries, because a retried charge can
// bill the card twice.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
)

// StatusSuccess is the TapPay status code for an authorised charge.
const StatusSuccess = 0

// Cardholder identifies the payer to the gateway.
type Cardholder struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// Result is the business outcome of a charge.  A declined card is a Result
// with Success=false, never an error.
type Result struct {
	Success    bool
	StatusCode int
	Message    string
	RecTradeID string
}

// Charger is implemented by anything that can charge a prime.
type Charger interface {
	Charge(ctx context.Context, prime string, amount int, holder Cardholder) (Result, error)
}

// Config holds the fixed merchant credentials.
type Config struct {
	Endpoint   string
	PartnerKey string
	MerchantID string
	Details    string
	Timeout    time.Duration
}

// Client is a TapPay pay-by-prime client.  It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client whose whole round trip is bounded by cfg.Timeout.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type payByPrimeRequest struct {
	Prime      string     `json:"prime"`
	PartnerKey string     `json:"partner_key"`
	MerchantID string     `json:"merchant_id"`
	Details    string     `json:"details"`
	Amount     int        `json:"amount"`
	Cardholder Cardholder `json:"cardholder"`
	Remember   bool       `json:"remember"`
}

type payByPrimeResponse struct {
	Status     *int   `json:"status"`
	Msg        string `json:"msg"`
	RecTradeID string `json:"rec_trade_id"`
}

// Charge posts one pay-by-prime request.  Transport failures, timeouts,
// non-2xx responses and bodies without a status field all wrap
// apperr.ErrGatewayUnreachable: the charge may or may not have happened.
func (c *Client) Charge(ctx context.Context, prime string, amount int, holder Cardholder) (Result, error) {
	body, err := json.Marshal(payByPrimeRequest{
		Prime:      prime,
		PartnerKey: c.cfg.PartnerKey,
		MerchantID: c.cfg.MerchantID,
		Details:    c.cfg.Details,
		Amount:     amount,
		Cardholder: holder,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.PartnerKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, unreachable("send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Result{}, unreachable("response", fmt.Errorf("http status %d", resp.StatusCode))
	}

	var out payByPrimeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Result{}, unreachable("decode", err)
	}
	if out.Status == nil {
		return Result{}, unreachable("decode", errors.New("response has no status"))
	}

	return Result{
		Success:    *out.Status == StatusSuccess,
		StatusCode: *out.Status,
		Message:    out.Msg,
		RecTradeID: out.RecTradeID,
	}, nil
}

func unreachable(stage string, err error) error {
	return fmt.Errorf("tappay %s: %w: %w", stage, apperr.ErrGatewayUnreachable, err)
}
