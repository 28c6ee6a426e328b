package portfolio

import (
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/coin-portal/internal/market"
	"github.com/shopspring/decimal"
)

// Price is either a known current price or Unpriced.
type Price struct {
	value float64
	known bool
}

// Priced wraps a known current price.
func Priced(v float64) Price {
	return Price{value: v, known: true}
}

// Unpriced marks a holding whose coin is absent from the snapshot.
var Unpriced = Price{}

// Value returns the price and whether it is known.
func (p Price) Value() (float64, bool) {
	return p.value, p.known
}

// PriceIndex maps coin ids to their latest market record.
type PriceIndex map[string]market.Coin

// NewPriceIndex builds an index from a snapshot.
func NewPriceIndex(coins []market.Coin) PriceIndex {
	return PriceIndex(market.IndexByID(coins))
}

// Price looks up the current price of coinID.
func (idx PriceIndex) Price(coinID string) Price {
	c, ok := idx[coinID]
	if !ok {
		return Unpriced
	}
	return Priced(c.CurrentPrice)
}

// UnpricedPolicy decides how holdings without a price enter the totals.
type UnpricedPolicy int

const (
	// UnpricedAsZero values an unpriced holding at 0, so its pnl is the
	// negative of its purchase value.
	UnpricedAsZero UnpricedPolicy = iota
	// UnpricedExcluded lists unpriced holdings but leaves them out of totals.
	UnpricedExcluded
)

// ParseUnpricedPolicy parses "zero" (or empty) and "exclude".
func ParseUnpricedPolicy(s string) (UnpricedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return UnpricedAsZero, nil
	case "exclude":
		return UnpricedExcluded, nil
	}
	return UnpricedAsZero, fmt.Errorf("unknown unpriced policy %q", s)
}

func (p UnpricedPolicy) String() string {
	if p == UnpricedExcluded {
		return "exclude"
	}
	return "zero"
}

// HoldingValuation is one holding joined with its current price.
type HoldingValuation struct {
	Holding
	Priced        bool    `json:"priced"`
	CurrentPrice  float64 `json:"currentPrice"`
	CurrentValue  float64 `json:"currentValue"`
	PurchaseValue float64 `json:"purchaseValue"`
	PnL           float64 `json:"pnl"`
	PnLPercentage float64 `json:"pnlPercentage"`
	Change24h     float64 `json:"change24h"`
	// Allocation is the share of TotalValue in percent.
	Allocation float64 `json:"allocation"`
}

// Valuation is the ledger valued against a snapshot.
type Valuation struct {
	Holdings           []HoldingValuation `json:"holdings"`
	TotalValue         float64            `json:"totalValue"`
	TotalPnL           float64            `json:"totalPnL"`
	TotalPnLPercentage float64            `json:"totalPnLPercentage"`
	CostBasis          float64            `json:"costBasis"`
	UnpricedCount      int                `json:"unpricedCount"`
	Policy             string             `json:"unpricedPolicy"`
}

var hundred = decimal.NewFromInt(100)

// dec converts a float, mapping NaN and infinities to zero.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// percent returns num/den*100, or 0 when den is zero.
func percent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred)
}

// Value joins holdings with index. Per holding: currentValue = amount *
// price, purchaseValue = amount * purchasePrice, pnl = currentValue -
// purchaseValue. The aggregate percentage divides totalPnL by the cost
// basis reconstructed as totalValue - totalPnL.
func Value(holdings []Holding, index PriceIndex, policy UnpricedPolicy) Valuation {
	out := Valuation{
		Holdings: make([]HoldingValuation, 0, len(holdings)),
		Policy:   policy.String(),
	}

	totalValue, totalPnL, costBasis := decimal.Zero, decimal.Zero, decimal.Zero
	currentValues := make([]decimal.Decimal, len(holdings))
	included := make([]bool, len(holdings))

	for i, h := range holdings {
		price, known := index.Price(h.CoinID).Value()

		amount := dec(h.Amount)
		current := amount.Mul(dec(price))
		purchase := amount.Mul(dec(h.PurchasePrice))
		pnl := current.Sub(purchase)

		hv := HoldingValuation{
			Holding:       h,
			Priced:        known,
			CurrentPrice:  price,
			CurrentValue:  current.InexactFloat64(),
			PurchaseValue: purchase.InexactFloat64(),
			PnL:           pnl.InexactFloat64(),
			PnLPercentage: percent(pnl, purchase).InexactFloat64(),
		}
		if known {
			hv.Change24h = index[h.CoinID].PriceChangePercentage24h
		} else {
			out.UnpricedCount++
		}
		out.Holdings = append(out.Holdings, hv)

		if !known && policy == UnpricedExcluded {
			continue
		}
		included[i] = true
		currentValues[i] = current
		totalValue = totalValue.Add(current)
		totalPnL = totalPnL.Add(pnl)
		costBasis = costBasis.Add(purchase)
	}

	for i := range out.Holdings {
		if included[i] {
			out.Holdings[i].Allocation = percent(currentValues[i], totalValue).InexactFloat64()
		}
	}

	out.TotalValue = totalValue.InexactFloat64()
	out.TotalPnL = totalPnL.InexactFloat64()
	out.CostBasis = costBasis.InexactFloat64()
	out.TotalPnLPercentage = percent(totalPnL, totalValue.Sub(totalPnL)).InexactFloat64()
	return out
}
