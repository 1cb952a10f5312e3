package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"agent-league/internal/backtest"
	"agent-league/internal/config"
	"agent-league/internal/export"
	"agent-league/internal/history"
	"agent-league/internal/market"
	"agent-league/internal/store"
	"agent-league/internal/strategy"
)

// App 聚合核心依赖并驱动一次完整的联赛回测：
// 加载K线 → 并行回测 → 导出CSV工件 → 归档历史 → 打印排行榜。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	out    io.Writer
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		out:    os.Stdout,
	}
}

// Run 执行一次联赛回测。runTag 为空时自动生成时间戳标签。
func (a *App) Run(ctx context.Context, runTag string) error {
	start := time.Now()
	if runTag == "" {
		runTag = export.DefaultRunTag(start)
	}

	a.logger.Info("联赛回测启动",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("csv_path", a.cfg.Data.CSVPath),
		zap.String("run_tag", runTag),
		zap.Strings("strategies", a.cfg.Backtest.Strategies),
	)

	bars, err := market.LoadCSV(a.cfg.Data.CSVPath)
	if err != nil {
		return fmt.Errorf("加载行情数据失败: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("行情数据为空: %s", a.cfg.Data.CSVPath)
	}
	a.logger.Info("行情数据加载完成",
		zap.Int("bars", len(bars)),
		zap.Time("first", bars[0].Timestamp),
		zap.Time("last", bars[len(bars)-1].Timestamp),
	)

	registry := strategy.NewRegistry(a.cfg.Strategy)
	runner, err := backtest.NewRunner(a.cfg.Execution, a.cfg.Risk, a.logger)
	if err != nil {
		return fmt.Errorf("初始化回测器失败: %w", err)
	}
	league, err := backtest.NewLeague(runner, registry, a.logger)
	if err != nil {
		return fmt.Errorf("初始化联赛失败: %w", err)
	}

	result, err := league.Run(ctx, bars, a.cfg.Backtest.Strategies)
	if err != nil {
		return fmt.Errorf("联赛回测失败: %w", err)
	}

	writer, err := export.NewWriter(a.cfg.Output.Dir, a.logger)
	if err != nil {
		return fmt.Errorf("初始化结果导出失败: %w", err)
	}
	artifacts, err := writer.Save(result, runTag)
	if err != nil {
		return fmt.Errorf("导出结果失败: %w", err)
	}

	histSvc, err := history.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化历史归档失败: %w", err)
	}
	runID, err := histSvc.Record(ctx, history.RunRecord{
		Tag:      runTag,
		CSVPath:  a.cfg.Data.CSVPath,
		BarCount: len(bars),
		Result:   result,
	})
	if err != nil {
		return fmt.Errorf("归档历史失败: %w", err)
	}

	a.printLeaderboard(result)
	a.printArtifacts(artifacts)

	a.logger.Info("联赛回测完成",
		zap.Int64("run_id", runID),
		zap.String("run_tag", runTag),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// History 打印最近 limit 次运行的摘要。
func (a *App) History(ctx context.Context, limit int) error {
	histSvc, err := history.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化历史归档失败: %w", err)
	}

	runs, err := histSvc.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("查询历史失败: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No archived league runs.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\trun_tag\tcreated_at\tcsv_path\tbars\tstrategies\tbest_strategy\tbest_return_%")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%.2f\n",
			run.ID, run.Tag, run.CreatedAt.Format(time.RFC3339), run.CSVPath,
			run.BarCount, run.StrategyCount, run.BestStrategy, run.BestReturn*100,
		)
	}
	return w.Flush()
}

// printLeaderboard 输出对齐的排行榜，比率列放大为百分数。
func (a *App) printLeaderboard(result backtest.LeagueResult) {
	fmt.Fprintln(a.out, "Leaderboard:")
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "strategy\tfinal_equity\ttotal_return_%\tmax_drawdown_%\tsharpe\twin_rate_%")
	for _, row := range result.Leaderboard {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.3f\t%.2f\n",
			row.Strategy, row.FinalEquity, row.TotalReturn*100,
			row.MaxDrawdown*100, row.Sharpe, row.WinRate*100,
		)
	}
	_ = w.Flush()
}

func (a *App) printArtifacts(artifacts map[string]string) {
	fmt.Fprintln(a.out, "\nSaved artifacts:")
	for _, key := range sortedKeys(artifacts) {
		fmt.Fprintf(a.out, "- %s: %s\n", key, artifacts[key])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
