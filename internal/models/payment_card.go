package models

import "time"

type PaymentCard struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	ExpMonth  int    `json:"expMonth"`
	ExpYear   int    `json:"expYear"`
	IsDefault bool   `json:"isDefault"`
}

// AddCardRequest is the payload of the add-card form.
type AddCardRequest struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
}

// PaymentRecord is one line of the billing history table.
type PaymentRecord struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	PaidAt      time.Time `json:"paidAt"`
}
