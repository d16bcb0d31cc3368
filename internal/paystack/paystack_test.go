package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(500000), MinorUnits(decimal.NewFromInt(5000)))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.005")))
}

func TestMinorUnitsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kobo := rapid.Int64Range(0, 1_000_000_000).Draw(t, "kobo")
		major := decimal.New(kobo, -2)
		if MinorUnits(major) != kobo {
			t.Fatalf("round trip %d -> %s -> %d", kobo, major, MinorUnits(major))
		}
	})
}

func TestBeginRejectsBadRequest(t *testing.T) {
	s := New(Config{PublicKey: "pk_test"})
	_, err := s.Begin(context.Background(), PaymentRequest{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = s.Begin(context.Background(), PaymentRequest{Email: "a@b.c", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestInitializeResolvesOnSuccess(t *testing.T) {
	s := New(Config{PublicKey: "pk_test"})
	ctx := context.Background()

	co, err := s.Begin(ctx, PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(250)})
	require.NoError(t, err)
	assert.Equal(t, "pk_test", co.PublicKey)
	assert.Equal(t, int64(25000), co.Amount)
	assert.Equal(t, "NGN", co.Currency)
	assert.True(t, s.Pending(co.Reference))
	assert.Equal(t, 1, s.PendingCount())

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = s.Resolve(Response{Reference: co.Reference, Status: "success", Transaction: "T1"})
	}()

	resp, err := s.Await(ctx, co.Reference)
	require.NoError(t, err)
	assert.Equal(t, "T1", resp.Transaction)
	assert.False(t, s.Pending(co.Reference))
	assert.Zero(t, s.PendingCount())
}

func TestFailureCarriesGatewayMessage(t *testing.T) {
	s := New(Config{})
	co, err := s.Begin(context.Background(), PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, s.Resolve(Response{Reference: co.Reference, Status: "failed", Message: "Insufficient funds"}))
	_, err = s.Await(context.Background(), co.Reference)
	require.Error(t, err)
	assert.Equal(t, "Insufficient funds", err.Error())
}

func TestCloseCancels(t *testing.T) {
	s := New(Config{})
	co, err := s.Begin(context.Background(), PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, s.Close(co.Reference))
	_, err = s.Await(context.Background(), co.Reference)
	assert.ErrorIs(t, err, ErrPaymentCancelled)
	assert.Equal(t, "Payment cancelled by user", err.Error())
}

func TestFirstOutcomeWins(t *testing.T) {
	s := New(Config{})
	co, err := s.Begin(context.Background(), PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, s.Resolve(Response{Reference: co.Reference, Status: "success"}))
	require.NoError(t, s.Close(co.Reference))
	resp, err := s.Await(context.Background(), co.Reference)
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
}

func TestAwaitUnknownAndContext(t *testing.T) {
	s := New(Config{})
	_, err := s.Await(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.ErrorIs(t, s.Close("nope"), ErrUnknownReference)

	co, err := s.Begin(context.Background(), PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Await(ctx, co.Reference)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.Pending(co.Reference), "a timed-out poll keeps the checkout")
}

func TestInitializePaymentForgetsOnTimeout(t *testing.T) {
	s := New(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.InitializePayment(ctx, PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, s.PendingCount())
}

func TestPurgeIdle(t *testing.T) {
	s := New(Config{})
	req := PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)}
	abandoned, err := s.Begin(context.Background(), req)
	require.NoError(t, err)
	settled, err := s.Begin(context.Background(), req)
	require.NoError(t, err)
	fresh, err := s.Begin(context.Background(), req)
	require.NoError(t, err)

	// resolved but never awaited
	require.NoError(t, s.Resolve(Response{Reference: settled.Reference, Status: "success"}))
	s.pending[abandoned.Reference].created = s.pending[abandoned.Reference].created.Add(-2 * time.Hour)
	s.pending[settled.Reference].created = s.pending[settled.Reference].created.Add(-2 * time.Hour)

	assert.Equal(t, 2, s.PurgeIdle(time.Hour))
	assert.False(t, s.Pending(abandoned.Reference))
	assert.False(t, s.Pending(settled.Reference))
	assert.True(t, s.Pending(fresh.Reference))
	assert.Equal(t, 1, s.PendingCount())
	assert.Zero(t, s.PurgeIdle(time.Hour))
}

func TestBeginInitializesWithGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "150050", body["amount"])
		assert.Equal(t, "PLN_pro", body["plan"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "ref_1",
			},
		})
	}))
	defer srv.Close()

	s := New(Config{SecretKey: "sk_test", BaseURL: srv.URL})
	co, err := s.Begin(context.Background(), PaymentRequest{
		Email: "a@b.c", Amount: decimal.RequireFromString("1500.50"), Plan: "PLN_pro",
	})
	require.NoError(t, err)
	assert.Equal(t, "ref_1", co.Reference)
	assert.Equal(t, "abc", co.AccessCode)
	assert.True(t, s.Pending("ref_1"))
}

func TestProxyWrappersUseGenericErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify/ref_ok":
			_, _ = w.Write([]byte(`{"status":true,"data":{"status":"success"}}`))
		case "/subscription":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"status":true}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()
	s := New(Config{ProxyURL: srv.URL})
	ctx := context.Background()

	out, err := s.VerifyPayment(ctx, "ref_ok")
	require.NoError(t, err)
	assert.Contains(t, string(out), "success")

	_, err = s.VerifyPayment(ctx, "ref_bad")
	assert.EqualError(t, err, "Payment verification failed")

	_, err = s.CreateSubscription(ctx, SubscriptionRequest{Customer: "CUS_1", Plan: "PLN_1"})
	require.NoError(t, err)

	_, err = s.CancelSubscription(ctx, "SUB_1", "tok")
	assert.EqualError(t, err, "Failed to cancel subscription")
}

func TestWebhookSignature(t *testing.T) {
	s := New(Config{SecretKey: "sk_test"})
	body := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("sk_test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, s.VerifyWebhookSignature(body, sig))
	assert.False(t, s.VerifyWebhookSignature(body, "deadbeef"))
	assert.False(t, s.VerifyWebhookSignature([]byte(`{}`), sig))
	assert.False(t, New(Config{}).VerifyWebhookSignature(body, sig))
}

func TestHandleEventSettlesPending(t *testing.T) {
	s := New(Config{})
	co, err := s.Begin(context.Background(), PaymentRequest{Email: "a@b.c", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	var ev Event
	ev.Event = "charge.success"
	ev.Data.Reference = co.Reference
	s.HandleEvent(ev)

	resp, err := s.Await(context.Background(), co.Reference)
	require.NoError(t, err)
	assert.Equal(t, co.Reference, resp.Reference)
}

func TestDefaultIsSingleton(t *testing.T) {
	a := Default(Config{PublicKey: "first"})
	b := Default(Config{PublicKey: "second"})
	assert.Same(t, a, b)
	assert.Equal(t, "first", b.PublicKey())
}
