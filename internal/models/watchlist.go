package models

// WatchAsset maps a trading symbol to its CoinGecko coin id.
type WatchAsset struct {
	Symbol      string `yaml:"symbol" json:"symbol"`
	CoinGeckoID string `yaml:"coingeckoId" json:"coingeckoId"`
}

var DefaultWatchlist = []WatchAsset{
	{Symbol: "BTC", CoinGeckoID: "bitcoin"},
	{Symbol: "ETH", CoinGeckoID: "ethereum"},
	{Symbol: "SOL", CoinGeckoID: "solana"},
	{Symbol: "LINK", CoinGeckoID: "chainlink"},
}
