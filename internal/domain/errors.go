package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid trade amount")
	ErrMarketNotFound      = errors.New("market not found")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrNoPosition          = errors.New("no position")
	ErrInvalidSellPercent  = errors.New("invalid sell percent")
	ErrInvalidMarketSpec   = errors.New("invalid market spec")
	ErrProviderUnavailable = errors.New("provider unavailable")
)
