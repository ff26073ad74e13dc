package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cryptochain/exchange/internal/api"
	"github.com/cryptochain/exchange/internal/auth"
	"github.com/cryptochain/exchange/internal/config"
	"github.com/cryptochain/exchange/internal/db"
	"github.com/cryptochain/exchange/internal/logger"
	"github.com/cryptochain/exchange/internal/market"
	"github.com/cryptochain/exchange/internal/trading"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*wsClient]bool)
	clientsMu sync.RWMutex
)

// broadcastMarket pushes the current price table snapshot to all
// connected websocket clients.
func broadcastMarket(m *market.Market, logr *zap.SugaredLogger) {
	data, err := json.Marshal(map[string]interface{}{"cryptos": m.List()})
	if err != nil {
		logr.Errorw("failed to marshal market snapshot", "error", err)
		return
	}

	clientsMu.RLock()
	stale := make([]*wsClient, 0)
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			stale = append(stale, client)
		}
	}
	clientsMu.RUnlock()

	if len(stale) > 0 {
		clientsMu.Lock()
		for _, client := range stale {
			delete(clients, client)
		}
		clientsMu.Unlock()
	}
}

func handleWebSocket(m *market.Market, logr *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logr.Errorw("failed to upgrade connection", "error", err)
			return
		}

		client := &wsClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send initial market snapshot
		broadcastMarket(m, logr)

		// Keep connection alive and handle disconnection
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// Main entry point: sets up database, services, and HTTP server
func main() {
	ctx := context.Background()

	// .env is optional; real env vars win either way
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logr, logSync, err := logger.New()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logSync()

	// Initialize database connection
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logr.Fatalw("failed to connect to database", "error", err)
	}
	defer database.Close(ctx)

	// Fixed price table for the process lifetime
	mkt := market.Default()

	// Initialize services
	authService := auth.NewService(database, cfg.JWTSecret)
	tradingService := trading.NewService(database, mkt)

	// Initialize API handlers
	handler := api.NewHandler(database, mkt, tradingService, authService, logr)

	// Set up HTTP router
	r := chi.NewRouter()
	r.Use(handler.RequestLogger)

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket market feed
	r.Get("/ws", handleWebSocket(mkt, logr))

	// Public endpoints
	r.Post("/api/auth/signup", handler.Signup)
	r.Post("/api/auth/login", handler.Login)
	r.Get("/api/market/crypto", handler.ListCrypto)
	r.Get("/api/market/crypto/{symbol}", handler.GetCrypto)
	r.Get("/api/blockchain/info", handler.GetBlockchainInfo)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(handler.AuthMiddleware)
		r.Get("/api/user/profile", handler.GetProfile)
		r.Get("/api/user/balance", handler.GetBalance)
		r.Post("/api/trade/buy", handler.Buy)
		r.Post("/api/trade/sell", handler.Sell)
		r.Get("/api/portfolio", handler.GetPortfolio)
		r.Get("/api/transactions", handler.GetTransactions)
		r.Get("/api/transactions/{id}", handler.GetTransaction)
	})

	// Start periodic market broadcast
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		for range ticker.C {
			broadcastMarket(mkt, logr)
		}
	}()

	// Start server
	logr.Infow("starting server", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logr.Fatalw("server failed", "error", err)
	}
}
