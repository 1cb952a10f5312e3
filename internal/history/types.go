package history

import (
	"time"

	"agent-league/internal/backtest"
)

// RunRecord 描述一次待归档的联赛回测。
type RunRecord struct {
	Tag       string
	CSVPath   string
	BarCount  int
	CreatedAt time.Time
	Result    backtest.LeagueResult
}

// RunSummary 为历史查询返回的单次运行摘要。
type RunSummary struct {
	ID            int64
	Tag           string
	CSVPath       string
	BarCount      int
	StrategyCount int
	BestStrategy  string
	BestReturn    float64
	CreatedAt     time.Time
}

// LeaderboardEntry 为归档排行榜中的一行，Rank 从1开始。
type LeaderboardEntry struct {
	Rank        int
	Strategy    string
	FinalEquity float64
	TotalReturn float64
	MaxDrawdown float64
	Sharpe      float64
	WinRate     float64
}
