// Package pricing holds the pure CPMM-style pricing functions for the
// market engine. None of these functions touch the store; they are safe to
// call without holding any lock.
package pricing

import "github.com/ccmarkets/engine/internal/apperr"

const (
	MinPrice = 0.01
	MaxPrice = 0.99
)

// Price derives the current market price from the pooled true/false bets,
// clamped to [MinPrice, MaxPrice]. An empty pool prices at 0.50.
func Price(poolTrue, poolFalse float64) float64 {
	total := poolTrue + poolFalse
	if total == 0 {
		return 0.5
	}
	p := poolTrue / total
	if p < MinPrice {
		return MinPrice
	}
	if p > MaxPrice {
		return MaxPrice
	}
	return p
}

// SharesLong returns the shares a "true" bet of cc at the given price buys.
func SharesLong(cc, price float64) (float64, error) {
	if cc <= 0 {
		return 0, apperr.InvalidInput("collateral must be positive")
	}
	if price <= 0 || price >= 1 {
		return 0, apperr.InvalidInput("price must be strictly between 0 and 1")
	}
	return cc / price, nil
}

// SharesShort returns the shares a "false" bet of cc at the given price buys.
func SharesShort(cc, price float64) (float64, error) {
	if cc <= 0 {
		return 0, apperr.InvalidInput("collateral must be positive")
	}
	if price <= 0 || price >= 1 {
		return 0, apperr.InvalidInput("price must be strictly between 0 and 1")
	}
	return cc / (1 - price), nil
}

// Collateral returns the CC backing a position of shares at entryPrice.
func Collateral(shares, entryPrice float64) (float64, error) {
	if shares < 0 {
		return 0, apperr.InvalidInput("shares cannot be negative")
	}
	if entryPrice < 0 || entryPrice > 1 {
		return 0, apperr.InvalidInput("entry price must be between 0 and 1")
	}
	c := shares * (1 - entryPrice)
	if c < 0 {
		return 0, nil
	}
	return c, nil
}
