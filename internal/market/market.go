package market

// Crypto holds the listing data for one tradable cryptocurrency.
type Crypto struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	Volume    string  `json:"volume"`
	MarketCap string  `json:"marketCap"`
	Icon      string  `json:"icon"`
	Color     string  `json:"color"`
}

// Market is a read-only price table, fixed for the lifetime of the
// process. Prices do not move; there is no external feed.
type Market struct {
	bySymbol map[string]Crypto
	order    []string
}

// NewMarket builds a market from a listing. Later duplicates of a
// symbol overwrite earlier ones.
func NewMarket(cryptos []Crypto) *Market {
	m := &Market{bySymbol: make(map[string]Crypto, len(cryptos))}
	for _, c := range cryptos {
		if _, ok := m.bySymbol[c.Symbol]; !ok {
			m.order = append(m.order, c.Symbol)
		}
		m.bySymbol[c.Symbol] = c
	}
	return m
}

// Default returns the standard five-coin listing.
func Default() *Market {
	return NewMarket([]Crypto{
		{Symbol: "BTC", Name: "Bitcoin", Price: 43250.50, Change: 5.23, Volume: "28.5B", MarketCap: "845B", Icon: "₿", Color: "#F7931A"},
		{Symbol: "ETH", Name: "Ethereum", Price: 2280.75, Change: -2.15, Volume: "15.2B", MarketCap: "274B", Icon: "Ξ", Color: "#627EEA"},
		{Symbol: "BNB", Name: "Binance Coin", Price: 315.20, Change: 3.45, Volume: "1.8B", MarketCap: "48B", Icon: "B", Color: "#F3BA2F"},
		{Symbol: "SOL", Name: "Solana", Price: 98.45, Change: 8.92, Volume: "2.1B", MarketCap: "42B", Icon: "◎", Color: "#14F195"},
		{Symbol: "ADA", Name: "Cardano", Price: 0.52, Change: -1.23, Volume: "845M", MarketCap: "18B", Icon: "₳", Color: "#0033AD"},
	})
}

// Get looks up one listing by symbol.
func (m *Market) Get(symbol string) (Crypto, bool) {
	c, ok := m.bySymbol[symbol]
	return c, ok
}

// List returns all listings in their original order.
func (m *Market) List() []Crypto {
	out := make([]Crypto, 0, len(m.order))
	for _, sym := range m.order {
		out = append(out, m.bySymbol[sym])
	}
	return out
}
