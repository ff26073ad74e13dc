package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cryptochain/exchange/internal/auth"
	"github.com/cryptochain/exchange/internal/db"
	"github.com/cryptochain/exchange/internal/market"
	"github.com/cryptochain/exchange/internal/models"
	"github.com/cryptochain/exchange/internal/trading"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	DB      *db.DB
	Market  *market.Market
	Trading *trading.Service
	Auth    *auth.Service
	Log     *zap.SugaredLogger
}

// NewHandler creates a new handler
func NewHandler(database *db.DB, m *market.Market, tr *trading.Service, authService *auth.Service, log *zap.SugaredLogger) *Handler {
	return &Handler{DB: database, Market: m, Trading: tr, Auth: authService, Log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// Signup handles account creation
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	user, token, err := h.Auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			writeMessage(w, http.StatusBadRequest, "Email already registered")
			return
		}
		if errors.Is(err, auth.ErrInvalidInput) {
			writeMessage(w, http.StatusBadRequest, "Invalid signup details")
			return
		}
		h.Log.Errorw("signup failed", "email", req.Email, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"token":   token,
		"user":    user,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing email or password")
		return
	}

	user, token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.Log.Errorw("login failed", "email", req.Email, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// GetProfile returns the authenticated user's account
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// GetBalance returns cash balance, portfolio value, and total assets
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}

	summary, err := h.Trading.Balance(r.Context(), user.ID)
	if err != nil {
		h.Log.Errorw("balance lookup failed", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// cryptoListing carries the symbol twice, once as id, to match the
// shape the frontend expects.
type cryptoListing struct {
	ID string `json:"id"`
	market.Crypto
}

// ListCrypto returns the full price table
func (h *Handler) ListCrypto(w http.ResponseWriter, r *http.Request) {
	cryptos := h.Market.List()
	listings := make([]cryptoListing, 0, len(cryptos))
	for _, c := range cryptos {
		listings = append(listings, cryptoListing{ID: c.Symbol, Crypto: c})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cryptos": listings})
}

// GetCrypto returns one price table entry
func (h *Handler) GetCrypto(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	crypto, ok := h.Market.Get(symbol)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Cryptocurrency not found")
		return
	}
	writeJSON(w, http.StatusOK, cryptoListing{ID: crypto.Symbol, Crypto: crypto})
}

type tradeRequest struct {
	CryptoSymbol string  `json:"crypto_symbol"`
	Amount       float64 `json:"amount"`
}

// Buy executes a purchase against the user's cash balance
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.CryptoSymbol == "" || req.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	tx, newBalance, err := h.Trading.Buy(r.Context(), user.ID, req.CryptoSymbol, req.Amount)
	if err != nil {
		h.writeTradeError(w, user.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Purchase successful",
		"transaction": tx,
		"new_balance": newBalance,
	})
}

// Sell executes a sale from the user's holdings
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.CryptoSymbol == "" || req.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	tx, newBalance, err := h.Trading.Sell(r.Context(), user.ID, req.CryptoSymbol, req.Amount)
	if err != nil {
		h.writeTradeError(w, user.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Sale successful",
		"transaction": tx,
		"new_balance": newBalance,
	})
}

func (h *Handler) writeTradeError(w http.ResponseWriter, userID int, err error) {
	switch {
	case errors.Is(err, trading.ErrInvalidQuantity):
		writeMessage(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, trading.ErrUnknownSymbol):
		writeMessage(w, http.StatusNotFound, "Cryptocurrency not found")
	case errors.Is(err, models.ErrInsufficientFunds):
		writeMessage(w, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, models.ErrInsufficientHoldings):
		writeMessage(w, http.StatusBadRequest, "Insufficient cryptocurrency in portfolio")
	default:
		h.Log.Errorw("trade failed", "user_id", userID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to execute trade")
	}
}

// GetPortfolio lists the user's holdings with current prices
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}

	positions, err := h.Trading.Portfolio(r.Context(), user.ID)
	if err != nil {
		h.Log.Errorw("portfolio lookup failed", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"portfolio": positions})
}

// GetTransactions returns the user's trade history, newest first
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}

	txs, err := h.DB.GetUserTransactions(r.Context(), user.ID)
	if err != nil {
		h.Log.Errorw("transactions lookup failed", "user_id", user.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// GetTransaction returns one of the user's transactions by id
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Token is missing!")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Transaction not found")
		return
	}

	tx, err := h.DB.GetTransaction(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.Log.Errorw("transaction lookup failed", "user_id", user.ID, "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to retrieve transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transaction": tx})
}

// GetBlockchainInfo returns static descriptive network data
func (h *Handler) GetBlockchainInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blockchain":         "CryptoChain Network",
		"consensus":          "Proof of Stake",
		"block_time":         "15 seconds",
		"total_blocks":       15432890,
		"network_hash_rate":  "245 EH/s",
		"active_nodes":       12450,
		"total_transactions": 2845632910,
		"gas_price":          "25 Gwei",
	})
}
