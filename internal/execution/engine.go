package execution

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-league/internal/config"
)

var (
	// ErrInvalidConfig 表示撮合引擎配置非法。
	ErrInvalidConfig = errors.New("invalid execution config")
	// ErrInvalidSide 表示订单方向不受支持。
	ErrInvalidSide = errors.New("unsupported order side")
)

// positionSnapEpsilon 以下的残余仓位视为已清空，同时清零成本。
const positionSnapEpsilon = 1e-12

// Engine 为只做多的撮合引擎，模拟滑点、手续费并跟踪组合账务。
type Engine struct {
	initialCapital    float64
	cash              float64
	positionQty       float64
	positionCostBasis float64
	slippageRate      float64
	feeRate           float64

	trades      []Trade
	equityCurve []EquityPoint
}

// NewEngine 创建撮合引擎，初始资金必须为正。
func NewEngine(cfg config.ExecutionConfig) (*Engine, error) {
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("execution: 初始资金必须大于0，当前为 %f: %w", cfg.InitialCapital, ErrInvalidConfig)
	}
	return &Engine{
		initialCapital: cfg.InitialCapital,
		cash:           cfg.InitialCapital,
		slippageRate:   cfg.SlippageBps / 10000.0,
		feeRate:        cfg.FeeBps / 10000.0,
	}, nil
}

// InitialCapital 返回初始资金。
func (e *Engine) InitialCapital() float64 {
	return e.initialCapital
}

// Cash 返回当前可用现金。
func (e *Engine) Cash() float64 {
	return e.cash
}

// PositionQty 返回当前持仓数量。
func (e *Engine) PositionQty() float64 {
	return e.positionQty
}

// TotalEquity 按给定标记价格计算总权益。
func (e *Engine) TotalEquity(markPrice float64) float64 {
	return e.cash + e.positionQty*markPrice
}

// MarkToMarket 以收盘价记录一条权益快照并返回权益。
func (e *Engine) MarkToMarket(timestamp time.Time, closePrice float64) float64 {
	equity := e.TotalEquity(closePrice)
	e.equityCurve = append(e.equityCurve, EquityPoint{
		Timestamp:   timestamp,
		Equity:      equity,
		Cash:        e.cash,
		PositionQty: e.positionQty,
		Close:       closePrice,
	})
	return equity
}

// ExecuteOrder 按当根收盘价撮合订单。
// qty<=0 时为空操作；买单数量受可用现金约束，卖单数量受持仓约束，
// 约束后数量归零同样视为空操作，返回 nil 而不记录成交。
func (e *Engine) ExecuteOrder(timestamp time.Time, side OrderSide, qty, price float64) (*Trade, error) {
	if qty <= 0 {
		return nil, nil
	}
	side = OrderSide(strings.ToLower(string(side)))

	var (
		tradeQty    float64
		fillPrice   float64
		notional    float64
		fee         float64
		realizedPnl float64
	)

	switch side {
	case OrderSideBuy:
		fillPrice = price * (1.0 + e.slippageRate)
		affordableQty := e.cash / (fillPrice * (1.0 + e.feeRate))
		tradeQty = qty
		if affordableQty < tradeQty {
			tradeQty = affordableQty
		}
		if tradeQty <= 0 {
			return nil, nil
		}
		notional = tradeQty * fillPrice
		fee = notional * e.feeRate
		totalCost := notional + fee
		e.cash -= totalCost
		e.positionQty += tradeQty
		e.positionCostBasis += totalCost
	case OrderSideSell:
		tradeQty = qty
		if e.positionQty < tradeQty {
			tradeQty = e.positionQty
		}
		if tradeQty <= 0 {
			return nil, nil
		}
		fillPrice = price * (1.0 - e.slippageRate)
		notional = tradeQty * fillPrice
		fee = notional * e.feeRate
		proceeds := notional - fee
		avgCost := e.positionCostBasis / e.positionQty
		costReleased := avgCost * tradeQty
		realizedPnl = proceeds - costReleased
		e.cash += proceeds
		e.positionQty -= tradeQty
		e.positionCostBasis -= costReleased
		if e.positionQty <= positionSnapEpsilon {
			e.positionQty = 0
			e.positionCostBasis = 0
		}
	default:
		return nil, fmt.Errorf("execution: 不支持的订单方向 %q: %w", side, ErrInvalidSide)
	}

	trade := Trade{
		Timestamp:     timestamp,
		Side:          side,
		Qty:           tradeQty,
		FillPrice:     fillPrice,
		Notional:      notional,
		Fee:           fee,
		RealizedPnl:   realizedPnl,
		CashAfter:     e.cash,
		PositionAfter: e.positionQty,
	}
	e.trades = append(e.trades, trade)
	return &trade, nil
}

// Trades 返回成交记录副本。
func (e *Engine) Trades() []Trade {
	return append([]Trade(nil), e.trades...)
}

// EquityCurve 返回权益曲线副本。
func (e *Engine) EquityCurve() []EquityPoint {
	return append([]EquityPoint(nil), e.equityCurve...)
}
