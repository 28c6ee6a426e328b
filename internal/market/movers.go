package market

// TopMovers returns the first n gainers (positive 24h change) and the first
// n losers (negative 24h change) in snapshot order. Unchanged records are
// in neither list.
func TopMovers(coins []Coin, n int) (gainers, losers []Coin) {
	if n < 0 {
		n = 0
	}
	gainers = make([]Coin, 0, n)
	losers = make([]Coin, 0, n)
	for _, c := range coins {
		switch {
		case c.PriceChangePercentage24h > 0 && len(gainers) < n:
			gainers = append(gainers, c)
		case c.PriceChangePercentage24h < 0 && len(losers) < n:
			losers = append(losers, c)
		}
		if len(gainers) == n && len(losers) == n {
			break
		}
	}
	return gainers, losers
}

// TopCoins returns the first n records.
func TopCoins(coins []Coin, n int) []Coin {
	if n < 0 {
		n = 0
	}
	if n > len(coins) {
		n = len(coins)
	}
	return coins[:n:n]
}
