package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"voteflow-backend/internal/billing"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/middleware"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/paystack"
	"voteflow-backend/pkg/utils"
)

const maxAwait = 60 * time.Second

type BillingHandler struct {
	Wallets  *billing.Registry
	Paystack *paystack.Service
	Currency string
}

func NewBillingHandler(wallets *billing.Registry, ps *paystack.Service, currency string) *BillingHandler {
	return &BillingHandler{Wallets: wallets, Paystack: ps, Currency: currency}
}

func (h *BillingHandler) wallet(w http.ResponseWriter, r *http.Request) (*billing.Wallet, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return h.Wallets.For(userID), true
}

// ListCards
// GET /api/billing/cards
func (h *BillingHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.wallet(w, r)
	if !ok {
		return
	}
	utils.Success(w, http.StatusOK, "", wallet.List())
}

// AddCard
// POST /api/billing/cards
func (h *BillingHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.wallet(w, r)
	if !ok {
		return
	}
	var req models.AddCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := wallet.Add(req)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.Success(w, http.StatusCreated, "Card added successfully", card)
}

// RemoveCard
// DELETE /api/billing/cards/{id}
func (h *BillingHandler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.wallet(w, r)
	if !ok {
		return
	}
	if err := wallet.Remove(mux.Vars(r)["id"]); err != nil {
		utils.Error(w, http.StatusNotFound, "Card not found")
		return
	}
	utils.Success(w, http.StatusOK, "Card removed", wallet.List())
}

// SetDefaultCard
// POST /api/billing/cards/{id}/default
func (h *BillingHandler) SetDefaultCard(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.wallet(w, r)
	if !ok {
		return
	}
	if err := wallet.SetDefault(mux.Vars(r)["id"]); err != nil {
		utils.Error(w, http.StatusNotFound, "Card not found")
		return
	}
	utils.Success(w, http.StatusOK, "Default payment method updated", wallet.List())
}

// History
// GET /api/billing/history
func (h *BillingHandler) History(w http.ResponseWriter, r *http.Request) {
	utils.Success(w, http.StatusOK, "", billing.History(h.Currency))
}

// Config returns what the widget needs besides the checkout itself.
// GET /api/billing/config
func (h *BillingHandler) Config(w http.ResponseWriter, r *http.Request) {
	utils.Success(w, http.StatusOK, "", map[string]string{
		"publicKey": h.Paystack.PublicKey(),
		"currency":  h.Currency,
	})
}

// BeginPayment registers a checkout.
// POST /api/billing/payments
func (h *BillingHandler) BeginPayment(w http.ResponseWriter, r *http.Request) {
	var req paystack.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	co, err := h.Paystack.Begin(r.Context(), req)
	if err != nil {
		if errors.Is(err, paystack.ErrInvalidRequest) {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.For("billing").WithError(err).Error("[Paystack] Begin failed")
		utils.Error(w, http.StatusBadGateway, "Failed to initialize payment")
		return
	}
	utils.Success(w, http.StatusCreated, "", co)
}

// AwaitPayment blocks until the checkout settles or ?timeout= seconds pass.
// GET /api/billing/payments/{reference}
func (h *BillingHandler) AwaitPayment(w http.ResponseWriter, r *http.Request) {
	timeout := time.Duration(queryInt(r, "timeout", 30)) * time.Second
	if timeout <= 0 || timeout > maxAwait {
		timeout = maxAwait
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	resp, err := h.Paystack.Await(ctx, mux.Vars(r)["reference"])
	switch {
	case err == nil:
		utils.Success(w, http.StatusOK, "Payment successful", resp)
	case errors.Is(err, paystack.ErrUnknownReference):
		utils.Error(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, context.DeadlineExceeded):
		utils.JSON(w, http.StatusAccepted, utils.Envelope{Success: false, Message: "Payment pending"})
	case errors.Is(err, paystack.ErrPaymentCancelled):
		utils.Error(w, http.StatusConflict, err.Error())
	default:
		utils.Error(w, http.StatusPaymentRequired, err.Error())
	}
}

// PaymentCallback delivers the widget's callback.
// POST /api/billing/payments/{reference}/callback
func (h *BillingHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var resp paystack.Response
	if !decodeJSON(w, r, &resp) {
		return
	}
	resp.Reference = mux.Vars(r)["reference"]
	if err := h.Paystack.Resolve(resp); err != nil {
		utils.Error(w, http.StatusNotFound, "Payment not found")
		return
	}
	utils.Success(w, http.StatusOK, "", nil)
}

// ClosePayment records that the user closed the widget.
// POST /api/billing/payments/{reference}/close
func (h *BillingHandler) ClosePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Paystack.Close(mux.Vars(r)["reference"]); err != nil {
		utils.Error(w, http.StatusNotFound, "Payment not found")
		return
	}
	utils.Success(w, http.StatusOK, paystack.ErrPaymentCancelled.Error(), nil)
}

// VerifyPayment
// GET /api/billing/payments/{reference}/verify
func (h *BillingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	out, err := h.Paystack.VerifyPayment(r.Context(), mux.Vars(r)["reference"])
	if err != nil {
		utils.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.Success(w, http.StatusOK, "", out)
}

// CreateSubscription
// POST /api/billing/subscriptions
func (h *BillingHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req paystack.SubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.Paystack.CreateSubscription(r.Context(), req)
	if err != nil {
		utils.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.Success(w, http.StatusCreated, "Subscription created", out)
}

// CancelSubscription
// POST /api/billing/subscriptions/cancel
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.Paystack.CancelSubscription(r.Context(), req.Code, req.Token)
	if err != nil {
		utils.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.Success(w, http.StatusOK, "Subscription cancelled", out)
}

// Webhook processes Paystack events. Always 200 once the signature checks
// out, so Paystack does not retry.
// POST /api/billing/webhook
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := logger.For("billing")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if !h.Paystack.VerifyWebhookSignature(body, r.Header.Get("x-paystack-signature")) {
		log.Warn("[Paystack] Invalid webhook signature")
		utils.Error(w, http.StatusUnauthorized, "Invalid signature")
		return
	}
	var ev paystack.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	log.WithField("event", ev.Event).Info("[Paystack] Received webhook")
	h.Paystack.HandleEvent(ev)
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
