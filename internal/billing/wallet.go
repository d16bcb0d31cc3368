// Package billing holds saved payment cards and the demo payment history
// shown on the subscription page.
package billing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"voteflow-backend/internal/models"
	"voteflow-backend/internal/timeutil"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrInvalidCard  = errors.New("invalid card details")
)

// Wallet is one user's saved cards. At most one card is the default; once
// any card exists exactly one is.
type Wallet struct {
	mu    sync.RWMutex
	cards []models.PaymentCard
}

func NewWallet(cards ...models.PaymentCard) *Wallet {
	w := &Wallet{cards: append([]models.PaymentCard(nil), cards...)}
	w.normalise()
	return w
}

func (w *Wallet) List() []models.PaymentCard {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]models.PaymentCard(nil), w.cards...)
}

// Add saves a card. The first card in an empty wallet becomes the default.
func (w *Wallet) Add(req models.AddCardRequest) (models.PaymentCard, error) {
	if err := validateCard(req, timeutil.Now()); err != nil {
		return models.PaymentCard{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	card := models.PaymentCard{
		ID:        uuid.NewString(),
		Brand:     strings.ToLower(strings.TrimSpace(req.Brand)),
		Last4:     req.Last4,
		ExpMonth:  req.ExpMonth,
		ExpYear:   req.ExpYear,
		IsDefault: len(w.cards) == 0,
	}
	w.cards = append(w.cards, card)
	return card, nil
}

// Remove deletes a card. When the default goes, the first remaining card
// takes over.
func (w *Wallet) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.index(id)
	if idx < 0 {
		return ErrCardNotFound
	}
	wasDefault := w.cards[idx].IsDefault
	w.cards = append(w.cards[:idx], w.cards[idx+1:]...)
	if wasDefault && len(w.cards) > 0 {
		w.cards[0].IsDefault = true
	}
	return nil
}

// SetDefault clears the flag on every other card, then sets it on id.
func (w *Wallet) SetDefault(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.index(id)
	if idx < 0 {
		return ErrCardNotFound
	}
	for i := range w.cards {
		w.cards[i].IsDefault = i == idx
	}
	return nil
}

// Default returns the default card, if any.
func (w *Wallet) Default() (models.PaymentCard, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, c := range w.cards {
		if c.IsDefault {
			return c, true
		}
	}
	return models.PaymentCard{}, false
}

func (w *Wallet) index(id string) int {
	for i, c := range w.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// normalise repairs seed data so exactly one card is default.
func (w *Wallet) normalise() {
	if len(w.cards) == 0 {
		return
	}
	seen := false
	for i := range w.cards {
		if w.cards[i].IsDefault {
			if seen {
				w.cards[i].IsDefault = false
			}
			seen = true
		}
	}
	if !seen {
		w.cards[0].IsDefault = true
	}
}

func validateCard(req models.AddCardRequest, now time.Time) error {
	if strings.TrimSpace(req.Brand) == "" {
		return fmt.Errorf("%w: brand is required", ErrInvalidCard)
	}
	if len(req.Last4) != 4 || strings.Trim(req.Last4, "0123456789") != "" {
		return fmt.Errorf("%w: last4 must be four digits", ErrInvalidCard)
	}
	if req.ExpMonth < 1 || req.ExpMonth > 12 {
		return fmt.Errorf("%w: expiry month must be 1-12", ErrInvalidCard)
	}
	if req.ExpYear < now.Year() || (req.ExpYear == now.Year() && req.ExpMonth < int(now.Month())) {
		return fmt.Errorf("%w: card has expired", ErrInvalidCard)
	}
	return nil
}

// Registry keys wallets by user id.
type Registry struct {
	mu      sync.Mutex
	wallets map[string]*Wallet
	seed    func() []models.PaymentCard
}

// NewRegistry creates wallets on first use, filled from seed when set.
func NewRegistry(seed func() []models.PaymentCard) *Registry {
	return &Registry{wallets: make(map[string]*Wallet), seed: seed}
}

func (r *Registry) For(userID string) *Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		var cards []models.PaymentCard
		if r.seed != nil {
			cards = r.seed()
		}
		w = NewWallet(cards...)
		r.wallets[userID] = w
	}
	return w
}

// DemoCards is the pair of cards a fresh account shows.
func DemoCards() []models.PaymentCard {
	year := timeutil.Now().Year()
	return []models.PaymentCard{
		{ID: uuid.NewString(), Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: year + 2, IsDefault: true},
		{ID: uuid.NewString(), Brand: "mastercard", Last4: "5555", ExpMonth: 8, ExpYear: year + 1},
	}
}

// History returns the demo billing history for the subscription page,
// newest first.
func History(currency string) []models.PaymentRecord {
	if currency == "" {
		currency = "NGN"
	}
	now := timeutil.Now()
	price := decimal.RequireFromString("15000.00")
	out := make([]models.PaymentRecord, 0, 3)
	for i := 0; i < 3; i++ {
		paid := now.AddDate(0, -i, 0)
		out = append(out, models.PaymentRecord{
			ID:          fmt.Sprintf("pay_%d", i+1),
			Reference:   fmt.Sprintf("vf_%s", paid.Format("200601")),
			Description: "Pro plan, monthly",
			Amount:      price.StringFixed(2),
			Currency:    currency,
			Status:      "success",
			PaidAt:      paid,
		})
	}
	return out
}
