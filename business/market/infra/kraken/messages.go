package kraken

// tickerResponse is the envelope of /0/public/Ticker.
type tickerResponse struct {
	Error  []string              `json:"error"`
	Result map[string]tickerInfo `json:"result"`
}

// tickerInfo carries the fields we consume; "c" is [price, lot volume]
// of the last trade.
type tickerInfo struct {
	Ask  []string `json:"a"`
	Bid  []string `json:"b"`
	Last []string `json:"c"`
}

// assetPairsResponse is the envelope of /0/public/AssetPairs.
type assetPairsResponse struct {
	Error  []string                 `json:"error"`
	Result map[string]assetPairInfo `json:"result"`
}

// assetPairInfo carries lot precision and the taker fee schedule.
// FeesTaker rows are [volume, fee_percent]; the zero-volume row is the
// base tier.
type assetPairInfo struct {
	Altname     string      `json:"altname"`
	LotDecimals int32       `json:"lot_decimals"`
	FeesTaker   [][]float64 `json:"fees_taker"`
}

// addOrderResponse is the envelope of /0/private/AddOrder.
type addOrderResponse struct {
	Error  []string `json:"error"`
	Result struct {
		Descr struct {
			Order string `json:"order"`
		} `json:"descr"`
		TxIDs []string `json:"txid"`
	} `json:"result"`
}
