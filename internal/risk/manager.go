package risk

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agent-league/internal/config"
)

// ErrInvalidConfig 表示风控参数越界。
var ErrInvalidConfig = errors.New("invalid risk config")

// dayStartEquityFloor 为日初权益下限，防止除零。
const dayStartEquityFloor = 1e-9

// Manager 负责仓位上限、订单规模与日内最大回撤熔断。
// 熔断状态按自然日聚合：一旦触发，当日剩余K线均不允许加仓，跨日自动复位。
type Manager struct {
	cfg    config.RiskConfig
	logger *zap.Logger

	currentDay     string
	hasDay         bool
	dayStartEquity float64
	guardTriggered bool
}

// NewManager 创建风险管理器，阈值越界时返回 ErrInvalidConfig。
func NewManager(cfg config.RiskConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.MaxPositionPct <= 0 || cfg.MaxPositionPct > 1 {
		return nil, fmt.Errorf("risk: max_position_pct 必须位于(0,1]，当前为 %f: %w", cfg.MaxPositionPct, ErrInvalidConfig)
	}
	if cfg.MaxDailyDrawdownPct <= 0 || cfg.MaxDailyDrawdownPct >= 1 {
		return nil, fmt.Errorf("risk: max_daily_drawdown_pct 必须位于(0,1)，当前为 %f: %w", cfg.MaxDailyDrawdownPct, ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, logger: logger}, nil
}

// RegisterEquity 在每根K线定价前登记权益，驱动日内回撤熔断。
// 必须按时间升序、每根K线恰好调用一次。
func (m *Manager) RegisterEquity(timestamp time.Time, equity float64) {
	barDay := calendarDay(timestamp)
	if !m.hasDay || barDay != m.currentDay {
		m.hasDay = true
		m.currentDay = barDay
		m.dayStartEquity = equity
		if m.dayStartEquity < dayStartEquityFloor {
			m.dayStartEquity = dayStartEquityFloor
		}
		m.guardTriggered = false
		return
	}

	dayReturn := equity/m.dayStartEquity - 1.0
	if dayReturn <= -m.cfg.MaxDailyDrawdownPct {
		if !m.guardTriggered {
			m.logger.Warn("触发日内回撤熔断",
				zap.String("trading_date", barDay),
				zap.Float64("day_return", dayReturn),
				zap.Float64("threshold", -m.cfg.MaxDailyDrawdownPct),
			)
		}
		m.guardTriggered = true
	}
}

// CanAddRisk 返回当前是否允许增加风险敞口。卖出永不受限。
func (m *Manager) CanAddRisk() bool {
	return !m.guardTriggered
}

// SizeBuyQty 计算买入数量。
// 目标名义金额 = min(权益×fraction, 仓位上限剩余容量, 可用现金)，
// 低于最小成交名义金额时返回0，避免手续费占比过高的碎单。
func (m *Manager) SizeBuyQty(requestedFraction, price, cash, equity, currentPositionQty float64) float64 {
	if price <= 0 || cash <= 0 || equity <= 0 {
		return 0
	}
	fraction := clampFraction(requestedFraction)
	if fraction == 0 {
		return 0
	}

	maxPositionNotional := equity * m.cfg.MaxPositionPct
	currentNotional := currentPositionQty * price
	remainingCapacity := maxPositionNotional - currentNotional
	if remainingCapacity < 0 {
		remainingCapacity = 0
	}
	requestedNotional := equity * fraction

	targetNotional := requestedNotional
	if remainingCapacity < targetNotional {
		targetNotional = remainingCapacity
	}
	if cash < targetNotional {
		targetNotional = cash
	}
	if targetNotional < m.cfg.MinTradeNotional {
		return 0
	}
	return targetNotional / price
}

// SizeSellQty 计算卖出数量，按持仓比例折算。
func (m *Manager) SizeSellQty(requestedFraction, currentPositionQty float64) float64 {
	if currentPositionQty <= 0 {
		return 0
	}
	fraction := clampFraction(requestedFraction)
	if fraction == 0 {
		return 0
	}
	return currentPositionQty * fraction
}

func clampFraction(fraction float64) float64 {
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}

// calendarDay 将时间归一化为UTC自然日。
func calendarDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
