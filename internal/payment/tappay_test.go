package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(Config{
		Endpoint:   url,
		PartnerKey: "partner_key",
		MerchantID: "merchant_id",
		Details:    "Taipei Day Trip",
		Timeout:    timeout,
	})
}

var holder = Cardholder{PhoneNumber: "0912345678", Name: "A", Email: "a@b.com"}

func TestChargeSuccess(t *testing.T) {
	var got payByPrimeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("x-api-key") != "partner_key" {
			t.Errorf("missing x-api-key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":0,"msg":"Success","rec_trade_id":"D20990101abc"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, time.Second).Charge(context.Background(), "test_prime", 1000, holder)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !res.Success || res.StatusCode != 0 || res.RecTradeID != "D20990101abc" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got.Prime != "test_prime" || got.Amount != 1000 || got.MerchantID != "merchant_id" || got.PartnerKey != "partner_key" {
		t.Fatalf("unexpected request body %+v", got)
	}
	if got.Cardholder != holder || got.Remember {
		t.Fatalf("unexpected cardholder/remember %+v", got)
	}
}

func TestChargeDeclineIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":10003,"msg":"Card Error"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, time.Second).Charge(context.Background(), "p", 1000, holder)
	if err != nil {
		t.Fatalf("decline returned error: %v", err)
	}
	if res.Success || res.StatusCode != 10003 || res.Message != "Card Error" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestChargeUnreachable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server_error", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{name: "malformed_body", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}},
		{name: "missing_status", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"msg":"??"}`))
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`{"status":0}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL, 100*time.Millisecond).Charge(context.Background(), "p", 1000, holder)
			if !errors.Is(err, apperr.ErrGatewayUnreachable) {
				t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
			}
		})
	}
}

func TestChargeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).Charge(context.Background(), "p", 1000, holder)
	if !errors.Is(err, apperr.ErrGatewayUnreachable) {
		t.Fatalf("expected ErrGatewayUnreachable, got %v", err)
	}
}
