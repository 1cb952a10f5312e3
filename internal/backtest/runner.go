package backtest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"agent-league/internal/config"
	"agent-league/internal/execution"
	"agent-league/internal/market"
	"agent-league/internal/risk"
	"agent-league/internal/strategy"
)

// Result 汇总单个策略一次回测的全部产出。
type Result struct {
	Strategy    string
	Trades      []execution.Trade
	EquityCurve []execution.EquityPoint
	Metrics     Metrics
}

// Runner 驱动单策略的逐K线回测循环。
// 每次 Run 都会新建撮合引擎与风险管理器，组合状态绝不跨run共享。
type Runner struct {
	execCfg config.ExecutionConfig
	riskCfg config.RiskConfig
	logger  *zap.Logger
}

// NewRunner 创建回测器。配置在此处预校验，进入循环后不再出现配置错误。
func NewRunner(execCfg config.ExecutionConfig, riskCfg config.RiskConfig, logger *zap.Logger) (*Runner, error) {
	if _, err := execution.NewEngine(execCfg); err != nil {
		return nil, err
	}
	if _, err := risk.NewManager(riskCfg, nil); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{execCfg: execCfg, riskCfg: riskCfg, logger: logger}, nil
}

// Run 对给定策略执行一次完整回测。
// 每根K线的次序固定：登记权益 → 策略信号 → 风控定量 → 撮合 → 收盘记账。
func (r *Runner) Run(ctx context.Context, bars []market.Bar, agent strategy.Agent) (Result, error) {
	if agent == nil {
		return Result{}, fmt.Errorf("backtest: agent 不能为空")
	}

	engine, err := execution.NewEngine(r.execCfg)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: 初始化撮合引擎失败: %w", err)
	}
	riskMgr, err := risk.NewManager(r.riskCfg, r.logger)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: 初始化风险管理失败: %w", err)
	}

	agent.Reset()
	agent.Prepare(bars)

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("backtest: 回测被取消: %w", err)
		}

		closePrice := bar.Close
		equityBefore := engine.TotalEquity(closePrice)
		riskMgr.RegisterEquity(bar.Timestamp, equityBefore)

		signal := agent.OnBar(i, bar, engine.PositionQty())
		switch strategy.Action(strings.ToLower(string(signal.Action))) {
		case strategy.ActionBuy:
			if !riskMgr.CanAddRisk() {
				r.logger.Debug("回撤熔断生效，忽略买入信号",
					zap.String("strategy", agent.Name()),
					zap.Time("timestamp", bar.Timestamp),
				)
				break
			}
			qty := riskMgr.SizeBuyQty(signal.Size, closePrice, engine.Cash(), equityBefore, engine.PositionQty())
			trade, err := engine.ExecuteOrder(bar.Timestamp, execution.OrderSideBuy, qty, closePrice)
			if err != nil {
				return Result{}, fmt.Errorf("backtest: 执行买单失败: %w", err)
			}
			r.logTrade(agent.Name(), trade)
		case strategy.ActionSell:
			// 卖出永不受熔断限制。
			qty := riskMgr.SizeSellQty(signal.Size, engine.PositionQty())
			trade, err := engine.ExecuteOrder(bar.Timestamp, execution.OrderSideSell, qty, closePrice)
			if err != nil {
				return Result{}, fmt.Errorf("backtest: 执行卖单失败: %w", err)
			}
			r.logTrade(agent.Name(), trade)
		}

		engine.MarkToMarket(bar.Timestamp, closePrice)
	}

	trades := engine.Trades()
	curve := engine.EquityCurve()
	return Result{
		Strategy:    agent.Name(),
		Trades:      trades,
		EquityCurve: curve,
		Metrics:     computeMetrics(curve, trades, r.execCfg.InitialCapital),
	}, nil
}

func (r *Runner) logTrade(strategyName string, trade *execution.Trade) {
	if trade == nil {
		return
	}
	r.logger.Debug("成交",
		zap.String("strategy", strategyName),
		zap.Time("timestamp", trade.Timestamp),
		zap.String("side", string(trade.Side)),
		zap.Float64("qty", trade.Qty),
		zap.Float64("fill_price", trade.FillPrice),
		zap.Float64("realized_pnl", trade.RealizedPnl),
	)
}
