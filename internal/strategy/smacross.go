package strategy

import (
	"fmt"
	"math"

	"agent-league/internal/config"
	"agent-league/internal/indicator"
	"agent-league/internal/market"
)

// NameSMACrossover 为均线交叉策略的注册名。
const NameSMACrossover = "sma_crossover"

// SMACrossover 在短均线上穿长均线且空仓时全仓买入，下穿且持仓时清仓。
// 均线预热期内一律观望。
type SMACrossover struct {
	shortWindow int
	longWindow  int

	smaShort []float64
	smaLong  []float64
}

// NewSMACrossover 创建均线交叉策略，要求短窗口严格小于长窗口。
func NewSMACrossover(cfg config.SMAConfig) (*SMACrossover, error) {
	if cfg.ShortWindow >= cfg.LongWindow {
		return nil, fmt.Errorf("strategy: 短均线窗口 %d 必须小于长均线窗口 %d: %w",
			cfg.ShortWindow, cfg.LongWindow, ErrInvalidConfig)
	}
	return &SMACrossover{
		shortWindow: cfg.ShortWindow,
		longWindow:  cfg.LongWindow,
	}, nil
}

func (a *SMACrossover) Name() string {
	return NameSMACrossover
}

func (a *SMACrossover) Reset() {}

func (a *SMACrossover) Prepare(bars []market.Bar) {
	closes := market.Closes(bars)
	a.smaShort = indicator.Sma(closes, a.shortWindow)
	a.smaLong = indicator.Sma(closes, a.longWindow)
}

func (a *SMACrossover) OnBar(index int, bar market.Bar, positionQty float64) Signal {
	if index >= len(a.smaShort) || index >= len(a.smaLong) {
		return HoldSignal
	}
	fast := a.smaShort[index]
	slow := a.smaLong[index]
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return HoldSignal
	}
	if fast > slow && positionQty <= 0 {
		return Signal{Action: ActionBuy, Size: 1.0}
	}
	if fast < slow && positionQty > 0 {
		return Signal{Action: ActionSell, Size: 1.0}
	}
	return HoldSignal
}
