package models

import "errors"

// Domain errors shared between the store and the services that sit on
// top of it. The API layer maps these onto HTTP status codes.
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient cryptocurrency in portfolio")
)
