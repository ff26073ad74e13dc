package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/cryptochain/exchange/internal/config"
	"github.com/cryptochain/exchange/internal/db"
	"github.com/cryptochain/exchange/internal/market"
	"github.com/cryptochain/exchange/internal/models"
	"github.com/cryptochain/exchange/internal/trading"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seed the database with a demo account and some trade history
func main() {
	ctx := context.Background()

	_ = godotenv.Load()
	cfg := config.FromEnv()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(ctx)

	const demoEmail = "demo@cryptochain.dev"

	if _, err := database.GetUserByEmail(ctx, demoEmail); err == nil {
		fmt.Println("Demo account already exists. No need to seed.")
		os.Exit(0)
	} else if !errors.Is(err, models.ErrNotFound) {
		log.Fatalf("Failed to check demo account: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user, err := database.CreateUser(ctx, "Demo Trader", demoEmail, string(hash))
	if err != nil {
		log.Fatalf("Failed to create demo account: %v", err)
	}

	// Run a few real trades so the holdings, ledger, and balance line up
	tradingService := trading.NewService(database, market.Default())

	buys := []struct {
		symbol string
		amount float64
	}{
		{"BTC", 0.1},
		{"ETH", 1},
		{"SOL", 5},
	}
	for _, b := range buys {
		if _, _, err := tradingService.Buy(ctx, user.ID, b.symbol, b.amount); err != nil {
			log.Fatalf("Failed to seed buy of %v %s: %v", b.amount, b.symbol, err)
		}
	}

	if _, _, err := tradingService.Sell(ctx, user.ID, "SOL", 2); err != nil {
		log.Fatalf("Failed to seed sell of 2 SOL: %v", err)
	}

	fmt.Printf("Successfully seeded demo account %s (password: demo1234)\n", demoEmail)
}
