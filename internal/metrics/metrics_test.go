package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.SetPrice("Crypto.BTC/USD", "key", "trading", 65000)
	m.SetAccountError("Crypto.BTC/USD", "price-feed-offline")
	m.SetPublisherError("Crypto.BTC/USD", "key", "bad-confidence")
	m.IncCycle()
	m.IncTransientFailure()
	m.AddNotifications(1, 2)
	m.SetReferenceAge("BTC", time.Minute)
}

func TestHandlerExposesGauges(t *testing.T) {
	m := New()
	m.SetPrice("Crypto.BTC/USD", "publisherkey", "trading", 65000.5)
	m.SetPublisherError("Crypto.BTC/USD", "publisherkey", "bad-confidence")
	m.SetAccountError("Crypto.BTC/USD", "price-feed-offline")
	m.IncCycle()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`pyth_crypto_price{publisher="publisherkey",status="trading",symbol="Crypto.BTC/USD"} 65000.5`,
		`pyth_publisher_price_errors{error_code="bad-confidence",publisher="publisherkey",symbol="Crypto.BTC/USD"} 1`,
		`pyth_price_account_errors{error_code="price-feed-offline",symbol="Crypto.BTC/USD"} 1`,
		`pyth_observer_cycles_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q\n%s", want, body)
		}
	}
}
