package dmarket

// Wire types for the DMarket exchange API. Prices are minor units (USD
// cents) encoded as decimal strings keyed by currency.

type marketItemsResponse struct {
	Objects []marketObject `json:"objects"`
	Total   any            `json:"total"`
	Cursor  string         `json:"cursor"`
}

type marketObject struct {
	ItemID string            `json:"itemId"`
	Title  string            `json:"title"`
	GameID string            `json:"gameId"`
	Price  map[string]string `json:"price"`
	Extra  marketObjectExtra `json:"extra"`
}

type marketObjectExtra struct {
	CategoryPath string  `json:"categoryPath"`
	Exterior     string  `json:"exterior"`
	FloatValue   float64 `json:"floatValue"`
	TradeLock    int     `json:"tradeLock"`
}

type lastSalesResponse struct {
	Sales []lastSale `json:"sales"`
}

type lastSale struct {
	Price  string `json:"price"`
	Date   int64  `json:"date"`
	TxType string `json:"txOperationType"`
}
