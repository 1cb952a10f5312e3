package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agent-league/internal/market"
	"agent-league/internal/strategy"
)

// Row 为排行榜中的一行摘要。
type Row struct {
	Strategy    string
	FinalEquity float64
	TotalReturn float64
	MaxDrawdown float64
	Sharpe      float64
	WinRate     float64
}

// LeagueResult 汇总一次联赛回测：排行榜加各策略完整结果。
type LeagueResult struct {
	Leaderboard []Row
	Backtests   map[string]Result
}

// League 让多个策略在同一份数据上并行对战并生成排行榜。
type League struct {
	runner   *Runner
	registry *strategy.Registry
	logger   *zap.Logger
}

// NewLeague 创建联赛回测器。
func NewLeague(runner *Runner, registry *strategy.Registry, logger *zap.Logger) (*League, error) {
	if runner == nil {
		return nil, fmt.Errorf("backtest: runner 不能为空")
	}
	if registry == nil {
		return nil, fmt.Errorf("backtest: registry 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &League{runner: runner, registry: registry, logger: logger}, nil
}

// Run 运行全部选定策略，names 为空时按注册顺序运行全部策略。
// 任一名称未注册时整体失败，不产出部分排行榜。
// 各策略回测完全独立，并行执行后按总收益降序排名，平局保持选择顺序。
func (l *League) Run(ctx context.Context, bars []market.Bar, names []string) (LeagueResult, error) {
	if len(names) == 0 {
		names = l.registry.Names()
	}

	var unknown []string
	for _, name := range names {
		if !l.registry.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return LeagueResult{}, fmt.Errorf("backtest: 未注册的策略 [%s]，可用策略: [%s]: %w",
			strings.Join(unknown, ", "), strings.Join(l.registry.Names(), ", "), strategy.ErrUnknownStrategy)
	}

	results := make([]Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			agent, err := l.registry.Build(name)
			if err != nil {
				return err
			}
			res, err := l.runner.Run(gctx, bars, agent)
			if err != nil {
				return fmt.Errorf("backtest: 策略 %s 回测失败: %w", name, err)
			}
			results[i] = res
			l.logger.Info("策略回测完成",
				zap.String("strategy", name),
				zap.Float64("total_return", res.Metrics.TotalReturn),
				zap.Int("trades", len(res.Trades)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LeagueResult{}, err
	}

	leaderboard := make([]Row, 0, len(results))
	backtests := make(map[string]Result, len(results))
	for _, res := range results {
		finalEquity := l.runner.execCfg.InitialCapital
		if len(res.EquityCurve) > 0 {
			finalEquity = res.EquityCurve[len(res.EquityCurve)-1].Equity
		}
		leaderboard = append(leaderboard, Row{
			Strategy:    res.Strategy,
			FinalEquity: finalEquity,
			TotalReturn: res.Metrics.TotalReturn,
			MaxDrawdown: res.Metrics.MaxDrawdown,
			Sharpe:      res.Metrics.Sharpe,
			WinRate:     res.Metrics.WinRate,
		})
		backtests[res.Strategy] = res
	}

	sort.SliceStable(leaderboard, func(i, j int) bool {
		return leaderboard[i].TotalReturn > leaderboard[j].TotalReturn
	})

	return LeagueResult{Leaderboard: leaderboard, Backtests: backtests}, nil
}
