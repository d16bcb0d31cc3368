// Package paystack wraps the Paystack checkout flow for the subscription page.
//
// A checkout is a two-step exchange: Begin registers a pending reference
// (and initialises the transaction with Paystack when a secret key is
// configured), then the browser widget reports back through Resolve or
// Close. Await blocks until that happens.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/metrics"
	"voteflow-backend/internal/timeutil"
)

var (
	ErrPaymentCancelled = errors.New("Payment cancelled by user")
	ErrUnknownReference = errors.New("unknown payment reference")
	ErrInvalidRequest   = errors.New("email and a positive amount are required")
)

type Config struct {
	PublicKey string
	SecretKey string
	BaseURL   string // Paystack API, e.g. https://api.paystack.co
	ProxyURL  string // backend proxy for verify and subscription routes
	Currency  string
}

// PaymentRequest mirrors the widget setup options.
type PaymentRequest struct {
	Email     string            `json:"email"`
	Amount    decimal.Decimal   `json:"amount"` // major units
	Currency  string            `json:"currency,omitempty"`
	Plan      string            `json:"plan,omitempty"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Checkout is what the browser needs to open the widget.
type Checkout struct {
	Reference        string `json:"reference"`
	PublicKey        string `json:"publicKey"`
	Email            string `json:"email"`
	Amount           int64  `json:"amount"` // minor units
	Currency         string `json:"currency"`
	Plan             string `json:"plan,omitempty"`
	AccessCode       string `json:"accessCode,omitempty"`
	AuthorizationURL string `json:"authorizationUrl,omitempty"`
}

// Response is the widget callback payload.
type Response struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Transaction string `json:"transaction,omitempty"`
	TrxRef      string `json:"trxref,omitempty"`
}

type outcome struct {
	resp *Response
	err  error
}

// checkout is a reference waiting for its widget callback.
type checkout struct {
	ch      chan outcome
	created time.Time
}

type Service struct {
	cfg  Config
	http *http.Client

	mu      sync.Mutex
	pending map[string]*checkout
}

var (
	defaultOnce sync.Once
	defaultSvc  *Service
)

// Default returns the process-wide service. The first caller's config wins;
// later calls ignore theirs.
func Default(cfg Config) *Service {
	defaultOnce.Do(func() {
		defaultSvc = New(cfg)
	})
	return defaultSvc
}

func New(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ProxyURL = strings.TrimRight(cfg.ProxyURL, "/")
	return &Service{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		pending: make(map[string]*checkout),
	}
}

func (s *Service) PublicKey() string { return s.cfg.PublicKey }

// MinorUnits converts a major-unit amount (naira, cedis) to kobo/pesewas.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Begin validates the request and registers its reference as pending.
func (s *Service) Begin(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	if strings.TrimSpace(req.Email) == "" || !req.Amount.IsPositive() {
		return nil, ErrInvalidRequest
	}
	co := &Checkout{
		Reference: req.Reference,
		PublicKey: s.cfg.PublicKey,
		Email:     req.Email,
		Amount:    MinorUnits(req.Amount),
		Currency:  req.Currency,
		Plan:      req.Plan,
	}
	if co.Currency == "" {
		co.Currency = s.cfg.Currency
	}
	if co.Reference == "" {
		co.Reference = "vf_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	if s.cfg.SecretKey != "" {
		if err := s.initialize(ctx, co, req.Metadata); err != nil {
			metrics.PaymentsTotal.WithLabelValues("init_failed").Inc()
			return nil, err
		}
	}

	s.mu.Lock()
	s.pending[co.Reference] = &checkout{ch: make(chan outcome, 1), created: timeutil.Now()}
	s.mu.Unlock()

	logger.For("paystack").WithFields(logrus.Fields{
		"reference": co.Reference,
		"amount":    co.Amount,
		"currency":  co.Currency,
	}).Info("[Paystack] Checkout started")
	return co, nil
}

// Await blocks until the reference is resolved, closed, or ctx ends. A
// reference outlives a cancelled Await so the browser can poll again.
func (s *Service) Await(ctx context.Context, reference string) (*Response, error) {
	s.mu.Lock()
	co, ok := s.pending[reference]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownReference
	}

	select {
	case out := <-co.ch:
		s.forget(reference)
		return out.resp, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InitializePayment runs a whole checkout: Begin, then Await. Nobody can
// await the reference once ctx ends, so it is dropped then.
func (s *Service) InitializePayment(ctx context.Context, req PaymentRequest) (*Response, error) {
	co, err := s.Begin(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := s.Await(ctx, co.Reference)
	if ctx.Err() != nil {
		s.forget(co.Reference)
	}
	return resp, err
}

// Resolve delivers the widget callback. A status other than "success"
// fails the checkout with the gateway's message.
func (s *Service) Resolve(resp Response) error {
	if resp.Status == "success" {
		metrics.PaymentsTotal.WithLabelValues("success").Inc()
		return s.settle(resp.Reference, outcome{resp: &resp})
	}
	msg := resp.Message
	if msg == "" {
		msg = "Payment failed"
	}
	metrics.PaymentsTotal.WithLabelValues("failed").Inc()
	return s.settle(resp.Reference, outcome{err: errors.New(msg)})
}

// Close records that the user dismissed the widget.
func (s *Service) Close(reference string) error {
	metrics.PaymentsTotal.WithLabelValues("cancelled").Inc()
	return s.settle(reference, outcome{err: ErrPaymentCancelled})
}

// Pending reports whether reference is awaiting a callback.
func (s *Service) Pending(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[reference]
	return ok
}

// PendingCount is the number of checkouts still open.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// PurgeIdle drops checkouts opened more than ttl ago, whether or not they
// were settled, and returns how many went.
func (s *Service) PurgeIdle(ttl time.Duration) int {
	cutoff := timeutil.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for ref, co := range s.pending {
		if co.created.Before(cutoff) {
			delete(s.pending, ref)
			purged++
		}
	}
	return purged
}

func (s *Service) settle(reference string, out outcome) error {
	s.mu.Lock()
	co, ok := s.pending[reference]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownReference
	}
	select {
	case co.ch <- out:
	default:
		// already settled; first outcome wins
	}
	return nil
}

func (s *Service) forget(reference string) {
	s.mu.Lock()
	delete(s.pending, reference)
	s.mu.Unlock()
}

func (s *Service) initialize(ctx context.Context, co *Checkout, meta map[string]string) error {
	body := map[string]interface{}{
		"email":     co.Email,
		"amount":    fmt.Sprintf("%d", co.Amount),
		"currency":  co.Currency,
		"reference": co.Reference,
	}
	if co.Plan != "" {
		body["plan"] = co.Plan
	}
	if len(meta) > 0 {
		body["metadata"] = meta
	}

	var res struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := s.send(ctx, http.MethodPost, s.cfg.BaseURL+"/transaction/initialize", body, s.cfg.SecretKey, &res); err != nil {
		return fmt.Errorf("initialize transaction: %w", err)
	}
	if !res.Status {
		return fmt.Errorf("initialize transaction: %s", res.Message)
	}
	co.AccessCode = res.Data.AccessCode
	co.AuthorizationURL = res.Data.AuthorizationURL
	if res.Data.Reference != "" {
		co.Reference = res.Data.Reference
	}
	return nil
}

// VerifyPayment asks the backend proxy to verify a reference.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.send(ctx, http.MethodGet, s.cfg.ProxyURL+"/verify/"+url.PathEscape(reference), nil, "", &out); err != nil {
		return nil, errors.New("Payment verification failed")
	}
	return out, nil
}

// SubscriptionRequest creates a plan subscription for a customer.
type SubscriptionRequest struct {
	Customer      string `json:"customer"`
	Plan          string `json:"plan"`
	Authorization string `json:"authorization,omitempty"`
}

func (s *Service) CreateSubscription(ctx context.Context, req SubscriptionRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.send(ctx, http.MethodPost, s.cfg.ProxyURL+"/subscription", req, "", &out); err != nil {
		return nil, errors.New("Failed to create subscription")
	}
	return out, nil
}

func (s *Service) CancelSubscription(ctx context.Context, code, token string) (json.RawMessage, error) {
	body := map[string]string{"code": code, "token": token}
	var out json.RawMessage
	if err := s.send(ctx, http.MethodPost, s.cfg.ProxyURL+"/subscription/disable", body, "", &out); err != nil {
		return nil, errors.New("Failed to cancel subscription")
	}
	return out, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header, an
// HMAC-SHA512 of the raw body keyed with the secret key.
func (s *Service) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.cfg.SecretKey == "" || signature == "" {
		return false
	}
	h := hmac.New(sha512.New, []byte(s.cfg.SecretKey))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Event is a webhook delivery.
type Event struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// HandleEvent settles a pending checkout from a webhook. Events for
// references this process does not hold are ignored.
func (s *Service) HandleEvent(ev Event) {
	log := logger.For("paystack").WithField("event", ev.Event)
	var err error
	switch ev.Event {
	case "charge.success":
		err = s.Resolve(Response{Reference: ev.Data.Reference, Status: "success", Message: ev.Data.GatewayResponse})
	case "charge.failed":
		err = s.Resolve(Response{Reference: ev.Data.Reference, Status: "failed", Message: ev.Data.GatewayResponse})
	default:
		log.Debug("[Paystack] Ignoring webhook event")
		return
	}
	if errors.Is(err, ErrUnknownReference) {
		log.WithField("reference", ev.Data.Reference).Debug("[Paystack] Webhook for reference not held here")
	}
}

func (s *Service) send(ctx context.Context, method, target string, body interface{}, bearer string, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
