package models

import "time"

// User represents a registered account
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Balance      float64   `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// Holding represents a user's position in one cryptocurrency.
// At most one row exists per (user, symbol); the row is deleted
// when the amount reaches zero.
type Holding struct {
	ID           int       `json:"id"`
	UserID       int       `json:"-"`
	CryptoSymbol string    `json:"crypto_symbol"`
	Amount       float64   `json:"amount"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transaction types
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// Transaction is an immutable record of one executed trade.
// Total is amount * price at execution time.
type Transaction struct {
	ID           int       `json:"id"`
	UserID       int       `json:"-"`
	Type         string    `json:"type"`
	CryptoSymbol string    `json:"symbol"`
	CryptoName   string    `json:"crypto"`
	Amount       float64   `json:"amount"`
	Price        float64   `json:"price"`
	Total        float64   `json:"total"`
	CreatedAt    time.Time `json:"timestamp"`
}
