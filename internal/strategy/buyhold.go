package strategy

import "agent-league/internal/market"

// NameBuyHold 为买入持有策略的注册名。
const NameBuyHold = "buy_hold"

// BuyAndHold 在首次发现空仓时全仓买入，此后一直持有。
type BuyAndHold struct {
	entered bool
}

// NewBuyAndHold 创建买入持有策略。
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

func (a *BuyAndHold) Name() string {
	return NameBuyHold
}

func (a *BuyAndHold) Reset() {
	a.entered = false
}

func (a *BuyAndHold) Prepare(bars []market.Bar) {}

func (a *BuyAndHold) OnBar(index int, bar market.Bar, positionQty float64) Signal {
	if !a.entered && positionQty <= 0 {
		a.entered = true
		return Signal{Action: ActionBuy, Size: 1.0}
	}
	return HoldSignal
}
