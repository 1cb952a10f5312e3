package strategy

import (
	"fmt"

	"agent-league/internal/config"
	"agent-league/internal/indicator"
	"agent-league/internal/market"
)

// NameRSIMeanReversion 为RSI均值回归策略的注册名。
const NameRSIMeanReversion = "rsi_mean_reversion"

// RSIMeanReversion 在RSI跌破下轨且空仓时按比例买入，升破上轨且持仓时清仓。
// RSI不可用的位置被填充为中性值，不会触发任何动作。
type RSIMeanReversion struct {
	period  int
	lower   float64
	upper   float64
	buySize float64

	rsi []float64
}

// NewRSIMeanReversion 创建RSI均值回归策略，要求下轨严格小于上轨。
func NewRSIMeanReversion(cfg config.RSIConfig) (*RSIMeanReversion, error) {
	if cfg.Lower >= cfg.Upper {
		return nil, fmt.Errorf("strategy: RSI下轨 %f 必须小于上轨 %f: %w",
			cfg.Lower, cfg.Upper, ErrInvalidConfig)
	}
	return &RSIMeanReversion{
		period:  cfg.Period,
		lower:   cfg.Lower,
		upper:   cfg.Upper,
		buySize: cfg.BuySize,
	}, nil
}

func (a *RSIMeanReversion) Name() string {
	return NameRSIMeanReversion
}

func (a *RSIMeanReversion) Reset() {}

func (a *RSIMeanReversion) Prepare(bars []market.Bar) {
	a.rsi = indicator.Rsi(market.Closes(bars), a.period)
}

func (a *RSIMeanReversion) OnBar(index int, bar market.Bar, positionQty float64) Signal {
	if index >= len(a.rsi) {
		return HoldSignal
	}
	value := a.rsi[index]
	if value < a.lower && positionQty <= 0 {
		return Signal{Action: ActionBuy, Size: a.buySize}
	}
	if value > a.upper && positionQty > 0 {
		return Signal{Action: ActionSell, Size: 1.0}
	}
	return HoldSignal
}
