package execution

import "time"

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Trade 记录一笔成交的完整账务快照。
type Trade struct {
	Timestamp     time.Time
	Side          OrderSide
	Qty           float64
	FillPrice     float64
	Notional      float64
	Fee           float64
	RealizedPnl   float64
	CashAfter     float64
	PositionAfter float64
}

// EquityPoint 为每根K线收盘后的权益快照。
type EquityPoint struct {
	Timestamp   time.Time
	Equity      float64
	Cash        float64
	PositionQty float64
	Close       float64
}
