package export

import (
	"time"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

// FieldDoc – JSON-представление position.Field.
type FieldDoc struct {
	Status string   `json:"status"`
	Value  *float64 `json:"value,omitempty"`
	Error  string   `json:"error,omitempty"`
}

func fieldDoc(f position.Field) FieldDoc {
	d := FieldDoc{Status: f.Status.String()}
	if f.Status == position.StatusOK {
		v := f.Value
		d.Value = &v
	}
	if f.Err != nil {
		d.Error = f.Err.Error()
	}
	return d
}

type PerpDoc struct {
	MarketIndex       uint16   `json:"market_index"`
	Market            string   `json:"market"`
	Direction         string   `json:"direction,omitempty"`
	TotalDeposit      FieldDoc `json:"total_deposit"`
	CostBasis         FieldDoc `json:"cost_basis"`
	PositionSizeBase  FieldDoc `json:"position_size_base"`
	PositionSizeQuote FieldDoc `json:"position_size_quote"`
	EntryPrice        FieldDoc `json:"entry_price"`
	CurrentPrice      FieldDoc `json:"current_price"`
	PnL               FieldDoc `json:"pnl"`
	PnLPercent        FieldDoc `json:"pnl_percent"`
}

type SpotDoc struct {
	MarketIndex        uint16   `json:"market_index"`
	Symbol             string   `json:"symbol"`
	IsBorrow           bool     `json:"is_borrow"`
	Balance            FieldDoc `json:"balance"`
	CumulativeDeposits FieldDoc `json:"cumulative_deposits"`
}

type OrderDoc struct {
	OrderID    uint32  `json:"order_id"`
	Market     string  `json:"market"`
	MarketType string  `json:"market_type"`
	Direction  string  `json:"direction"`
	OrderType  string  `json:"order_type"`
	Size       float64 `json:"size"`
	Price      float64 `json:"price"`
	Filled     float64 `json:"filled"`
	Status     string  `json:"status"`
}

// Document – экспортируемый снимок дашборда.
type Document struct {
	ExportTime  time.Time  `json:"export_time"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Authority   string     `json:"authority"`
	SubAccount  uint16     `json:"subaccount"`
	UserPubkey  string     `json:"user_pubkey"`
	Name        string     `json:"name,omitempty"`
	Exists      bool       `json:"exists"`
	Balance     FieldDoc   `json:"balance"`
	BalanceText string     `json:"balance_text"`
	TotalPnL    float64    `json:"total_pnl"`
	Partial     bool       `json:"partial"`
	Error       string     `json:"error,omitempty"`
	StaleError  string     `json:"stale_error,omitempty"`
	Spot        []SpotDoc  `json:"spot"`
	Perps       []PerpDoc  `json:"perps"`
	Orders      []OrderDoc `json:"orders"`
}

// NewDocument converts a snapshot into its export form.
func NewDocument(snap position.Snapshot) Document {
	doc := Document{
		ExportTime:  time.Now(),
		FetchedAt:   snap.FetchedAt,
		Authority:   snap.Authority.String(),
		SubAccount:  snap.SubAccount,
		UserPubkey:  snap.UserPubkey.String(),
		Name:        snap.Name,
		Exists:      snap.Exists,
		Balance:     fieldDoc(snap.Balance),
		BalanceText: snap.BalanceText,
		TotalPnL:    snap.TotalPnL(),
		Partial:     snap.Partial(),
		Spot:        make([]SpotDoc, 0, len(snap.Spot)),
		Perps:       make([]PerpDoc, 0, len(snap.Perps)),
		Orders:      make([]OrderDoc, 0, len(snap.Orders)),
	}
	if snap.Err != nil {
		doc.Error = snap.Err.Error()
	}
	if snap.StaleErr != nil {
		doc.StaleError = snap.StaleErr.Error()
	}
	for _, s := range snap.Spot {
		doc.Spot = append(doc.Spot, SpotDoc{
			MarketIndex:        s.MarketIndex,
			Symbol:             s.Symbol,
			IsBorrow:           s.IsBorrow,
			Balance:            fieldDoc(s.Balance),
			CumulativeDeposits: fieldDoc(s.CumulativeDeposits),
		})
	}
	for _, p := range snap.Perps {
		doc.Perps = append(doc.Perps, PerpDoc{
			MarketIndex:       p.MarketIndex,
			Market:            p.Market,
			Direction:         p.Direction,
			TotalDeposit:      fieldDoc(p.TotalDeposit),
			CostBasis:         fieldDoc(p.CostBasis),
			PositionSizeBase:  fieldDoc(p.PositionSizeBase),
			PositionSizeQuote: fieldDoc(p.PositionSizeQuote),
			EntryPrice:        fieldDoc(p.EntryPrice),
			CurrentPrice:      fieldDoc(p.CurrentPrice),
			PnL:               fieldDoc(p.PnL),
			PnLPercent:        fieldDoc(p.PnLPercent),
		})
	}
	for _, o := range snap.Orders {
		doc.Orders = append(doc.Orders, OrderDoc(o))
	}
	return doc
}
