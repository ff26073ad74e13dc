package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/cryptochain/exchange/internal/market"
	"github.com/cryptochain/exchange/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownSymbol means the requested symbol is not in the price table
	ErrUnknownSymbol = errors.New("cryptocurrency not found")
	// ErrInvalidQuantity means the requested amount is missing, zero or negative
	ErrInvalidQuantity = errors.New("amount must be positive")
)

// Store is the persistence surface the executor needs. *db.DB satisfies it.
type Store interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserHoldings(ctx context.Context, userID int) ([]models.Holding, error)
	ExecuteBuy(ctx context.Context, t *models.Transaction) (*models.Transaction, float64, error)
	ExecuteSell(ctx context.Context, t *models.Transaction) (*models.Transaction, float64, error)
}

// Service executes trades against the price table and the store.
type Service struct {
	store  Store
	market *market.Market
}

// NewService creates a new trading service
func NewService(store Store, m *market.Market) *Service {
	return &Service{store: store, market: m}
}

// total computes price * qty through decimal so the recorded total is
// exact (43250.50 * 0.1 is 4325.05, not a binary-float neighbor of it).
func total(price, qty float64) float64 {
	t, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(qty)).Float64()
	return t
}

// Buy purchases qty units of symbol at the current table price, funded
// from the user's cash balance. Returns the ledger entry and the new
// balance. State is left untouched on any failure.
func (s *Service) Buy(ctx context.Context, userID int, symbol string, qty float64) (*models.Transaction, float64, error) {
	if qty <= 0 {
		return nil, 0, ErrInvalidQuantity
	}
	crypto, ok := s.market.Get(symbol)
	if !ok {
		return nil, 0, ErrUnknownSymbol
	}

	t := &models.Transaction{
		UserID:       userID,
		Type:         models.TradeBuy,
		CryptoSymbol: crypto.Symbol,
		CryptoName:   crypto.Name,
		Amount:       qty,
		Price:        crypto.Price,
		Total:        total(crypto.Price, qty),
	}

	newTx, balance, err := s.store.ExecuteBuy(ctx, t)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("buy %s: %w", symbol, err)
	}
	return newTx, balance, nil
}

// Sell disposes qty units of symbol at the current table price and
// credits the proceeds. The holding must cover the full quantity.
func (s *Service) Sell(ctx context.Context, userID int, symbol string, qty float64) (*models.Transaction, float64, error) {
	if qty <= 0 {
		return nil, 0, ErrInvalidQuantity
	}
	crypto, ok := s.market.Get(symbol)
	if !ok {
		return nil, 0, ErrUnknownSymbol
	}

	t := &models.Transaction{
		UserID:       userID,
		Type:         models.TradeSell,
		CryptoSymbol: crypto.Symbol,
		CryptoName:   crypto.Name,
		Amount:       qty,
		Price:        crypto.Price,
		Total:        total(crypto.Price, qty),
	}

	newTx, balance, err := s.store.ExecuteSell(ctx, t)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHoldings) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("sell %s: %w", symbol, err)
	}
	return newTx, balance, nil
}

// BalanceSummary is a snapshot of a user's cash and portfolio worth.
type BalanceSummary struct {
	Balance        float64 `json:"balance"`
	PortfolioValue float64 `json:"portfolio_value"`
	TotalAssets    float64 `json:"total_assets"`
}

// Balance values the user's account: cash plus each holding at its
// current table price. Holdings in symbols no longer listed contribute
// nothing to the valuation.
func (s *Service) Balance(ctx context.Context, userID int) (BalanceSummary, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return BalanceSummary{}, err
	}
	holdings, err := s.store.GetUserHoldings(ctx, userID)
	if err != nil {
		return BalanceSummary{}, err
	}

	value := decimal.Zero
	for _, h := range holdings {
		crypto, ok := s.market.Get(h.CryptoSymbol)
		if !ok {
			continue
		}
		value = value.Add(decimal.NewFromFloat(h.Amount).Mul(decimal.NewFromFloat(crypto.Price)))
	}
	portfolioValue, _ := value.Float64()
	totalAssets, _ := value.Add(decimal.NewFromFloat(user.Balance)).Float64()

	return BalanceSummary{
		Balance:        user.Balance,
		PortfolioValue: portfolioValue,
		TotalAssets:    totalAssets,
	}, nil
}

// Position is a holding joined with its current market data.
type Position struct {
	models.Holding
	CryptoName   string  `json:"crypto_name"`
	CurrentPrice float64 `json:"current_price"`
	CurrentValue float64 `json:"current_value"`
}

// Portfolio lists the user's holdings with current prices and values.
// Holdings in delisted symbols are omitted.
func (s *Service) Portfolio(ctx context.Context, userID int) ([]Position, error) {
	holdings, err := s.store.GetUserHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(holdings))
	for _, h := range holdings {
		crypto, ok := s.market.Get(h.CryptoSymbol)
		if !ok {
			continue
		}
		positions = append(positions, Position{
			Holding:      h,
			CryptoName:   crypto.Name,
			CurrentPrice: crypto.Price,
			CurrentValue: total(crypto.Price, h.Amount),
		})
	}
	return positions, nil
}
