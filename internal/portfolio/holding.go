// Package portfolio owns the persisted ledger of simulated holdings and
// values it against a market snapshot.
package portfolio

import (
	"errors"
	"math"
	"strings"
)

var (
	// ErrInvalidAmount is returned when an amount is negative or not a finite number.
	ErrInvalidAmount = errors.New("amount must be a non-negative number")
	// ErrInvalidHolding is returned when a new entry is malformed.
	ErrInvalidHolding = errors.New("invalid holding")
	// ErrNotInPortfolio is returned by callers that require membership.
	ErrNotInPortfolio = errors.New("coin is not in the portfolio")
)

// PurchaseDateLayout is the ISO-8601 layout purchase dates are stamped with.
const PurchaseDateLayout = "2006-01-02T15:04:05.000Z07:00"

// Holding is one ledger entry. Symbol, name and image are copied from the
// market record when the holding is added and are not refreshed later.
type Holding struct {
	CoinID        string  `json:"coinId"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	Amount        float64 `json:"amount"`
	PurchasePrice float64 `json:"purchasePrice"`
	PurchaseDate  string  `json:"purchaseDate"`
}

// NewEntry is a holding before it is stamped with a purchase date.
type NewEntry struct {
	CoinID        string  `json:"coinId"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	Amount        float64 `json:"amount"`
	PurchasePrice float64 `json:"purchasePrice"`
}

// HoldingUpdate carries the mutable fields of a holding. Nil fields are
// left unchanged. Purchase price and date cannot be changed.
type HoldingUpdate struct {
	Amount *float64 `json:"amount,omitempty"`
	Symbol *string  `json:"symbol,omitempty"`
	Name   *string  `json:"name,omitempty"`
	Image  *string  `json:"image,omitempty"`
}

// AddResult reports the outcome of Ledger.Add. Rejected accompanies every
// non-nil error.
type AddResult int

const (
	Rejected AddResult = iota
	Added
	AlreadyExists
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyExists:
		return "already_exists"
	}
	return "rejected"
}

// ValidAmount reports whether v can be held: finite and not negative.
func ValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (e NewEntry) validate() error {
	if strings.TrimSpace(e.CoinID) == "" {
		return errors.Join(ErrInvalidHolding, errors.New("coin id is required"))
	}
	if !ValidAmount(e.Amount) {
		return errors.Join(ErrInvalidHolding, ErrInvalidAmount)
	}
	if !ValidAmount(e.PurchasePrice) {
		return errors.Join(ErrInvalidHolding, errors.New("purchase price must be a non-negative number"))
	}
	return nil
}

// validate rejects an invalid amount.
func (u HoldingUpdate) validate() error {
	if u.Amount != nil && !ValidAmount(*u.Amount) {
		return ErrInvalidAmount
	}
	return nil
}

func (h Holding) apply(u HoldingUpdate) Holding {
	if u.Amount != nil {
		h.Amount = *u.Amount
	}
	if u.Symbol != nil {
		h.Symbol = *u.Symbol
	}
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Image != nil {
		h.Image = *u.Image
	}
	return h
}
