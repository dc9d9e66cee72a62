package drift

import "fmt"

var perpMarketNames = map[uint16]string{
	0: "SOL-PERP",
	1: "BTC-PERP",
	2: "ETH-PERP",
	3: "APT-PERP",
	4: "1MBONK-PERP",
	5: "POL-PERP",
	6: "ARB-PERP",
	7: "DOGE-PERP",
	8: "BNB-PERP",
	9: "SUI-PERP",
}

var spotMarketSymbols = map[uint16]string{
	0: "USDC",
	1: "SOL",
	2: "mSOL",
	3: "wBTC",
	4: "wETH",
	5: "USDT",
	6: "jitoSOL",
	7: "PYTH",
}

// PerpMarketName возвращает тикер перп-рынка или "PERP-<idx>" для неизвестного индекса.
func PerpMarketName(idx uint16) string {
	if name, ok := perpMarketNames[idx]; ok {
		return name
	}
	return fmt.Sprintf("PERP-%d", idx)
}

// SpotMarketSymbol возвращает символ токена спотового рынка.
func SpotMarketSymbol(idx uint16) string {
	if sym, ok := spotMarketSymbols[idx]; ok {
		return sym
	}
	return fmt.Sprintf("SPOT-%d", idx)
}

// MarketName выбирает таблицу по типу рынка ордера.
func MarketName(t MarketType, idx uint16) string {
	if t == MarketTypePerp {
		return PerpMarketName(idx)
	}
	return SpotMarketSymbol(idx)
}
