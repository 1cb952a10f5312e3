package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agent-league/internal/store"
)

// Service 将联赛回测结果持久化到 SQLite，供后续对比查询。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化历史归档服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("history: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS league_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_tag TEXT NOT NULL,
			csv_path TEXT NOT NULL,
			bar_count INTEGER NOT NULL,
			strategy_count INTEGER NOT NULL,
			best_strategy TEXT NOT NULL,
			best_return REAL NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS league_leaderboard (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES league_runs(id),
			rank INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			final_equity REAL NOT NULL,
			total_return REAL NOT NULL,
			max_drawdown REAL NOT NULL,
			sharpe REAL NOT NULL,
			win_rate REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS league_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES league_runs(id),
			strategy TEXT NOT NULL,
			ts TEXT NOT NULL,
			side TEXT NOT NULL,
			qty REAL NOT NULL,
			fill_price REAL NOT NULL,
			notional REAL NOT NULL,
			fee REAL NOT NULL,
			realized_pnl REAL NOT NULL,
			cash_after REAL NOT NULL,
			position_after REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS league_equity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES league_runs(id),
			strategy TEXT NOT NULL,
			ts TEXT NOT NULL,
			equity REAL NOT NULL,
			cash REAL NOT NULL,
			position_qty REAL NOT NULL,
			close REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_league_leaderboard_run ON league_leaderboard(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_league_trades_run ON league_trades(run_id, strategy);`,
		`CREATE INDEX IF NOT EXISTS idx_league_equity_run ON league_equity(run_id, strategy);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("history: 初始化表结构失败: %w", err)
		}
	}

	return nil
}

// Record 在单个事务内写入一次联赛回测的全部产出，返回运行ID。
// 排行榜、成交与权益按排行榜次序落库，任一写入失败整体回滚。
func (s *Service) Record(ctx context.Context, rec RunRecord) (runID int64, err error) {
	if len(rec.Result.Leaderboard) == 0 {
		return 0, fmt.Errorf("history: 排行榜为空，无可归档内容")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	best := rec.Result.Leaderboard[0]

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: 开启事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, execErr := tx.ExecContext(ctx,
		`INSERT INTO league_runs (run_tag, csv_path, bar_count, strategy_count, best_strategy, best_return, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Tag, rec.CSVPath, rec.BarCount, len(rec.Result.Leaderboard),
		best.Strategy, best.TotalReturn, createdAt.Format(time.RFC3339),
	)
	if execErr != nil {
		err = fmt.Errorf("history: 写入运行记录失败: %w", execErr)
		return 0, err
	}
	runID, err = res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("history: 获取运行ID失败: %w", err)
		return 0, err
	}

	rowStmt, prepErr := tx.PrepareContext(ctx,
		`INSERT INTO league_leaderboard (run_id, rank, strategy, final_equity, total_return, max_drawdown, sharpe, win_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if prepErr != nil {
		err = fmt.Errorf("history: 预备排行榜写入失败: %w", prepErr)
		return 0, err
	}
	defer rowStmt.Close()

	tradeStmt, prepErr := tx.PrepareContext(ctx,
		`INSERT INTO league_trades (run_id, strategy, ts, side, qty, fill_price, notional, fee, realized_pnl, cash_after, position_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if prepErr != nil {
		err = fmt.Errorf("history: 预备成交写入失败: %w", prepErr)
		return 0, err
	}
	defer tradeStmt.Close()

	equityStmt, prepErr := tx.PrepareContext(ctx,
		`INSERT INTO league_equity (run_id, strategy, ts, equity, cash, position_qty, close)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if prepErr != nil {
		err = fmt.Errorf("history: 预备权益写入失败: %w", prepErr)
		return 0, err
	}
	defer equityStmt.Close()

	for rank, row := range rec.Result.Leaderboard {
		if _, execErr := rowStmt.ExecContext(ctx, runID, rank+1, row.Strategy,
			row.FinalEquity, row.TotalReturn, row.MaxDrawdown, row.Sharpe, row.WinRate); execErr != nil {
			err = fmt.Errorf("history: 写入排行榜失败: %w", execErr)
			return 0, err
		}

		result, ok := rec.Result.Backtests[row.Strategy]
		if !ok {
			continue
		}
		for _, trade := range result.Trades {
			if _, execErr := tradeStmt.ExecContext(ctx, runID, row.Strategy,
				trade.Timestamp.UTC().Format(time.RFC3339), string(trade.Side),
				trade.Qty, trade.FillPrice, trade.Notional, trade.Fee,
				trade.RealizedPnl, trade.CashAfter, trade.PositionAfter); execErr != nil {
				err = fmt.Errorf("history: 写入成交记录失败: %w", execErr)
				return 0, err
			}
		}
		for _, point := range result.EquityCurve {
			if _, execErr := equityStmt.ExecContext(ctx, runID, row.Strategy,
				point.Timestamp.UTC().Format(time.RFC3339),
				point.Equity, point.Cash, point.PositionQty, point.Close); execErr != nil {
				err = fmt.Errorf("history: 写入权益曲线失败: %w", execErr)
				return 0, err
			}
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("history: 提交事务失败: %w", commitErr)
		return 0, err
	}

	s.logger.Info("联赛结果已归档",
		zap.Int64("run_id", runID),
		zap.String("run_tag", rec.Tag),
		zap.Int("strategies", len(rec.Result.Leaderboard)),
	)
	return runID, nil
}

// RecentRuns 按时间倒序返回最近的运行摘要。
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_tag, csv_path, bar_count, strategy_count, best_strategy, best_return, created_at
		 FROM league_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: 查询运行记录失败: %w", err)
	}
	defer rows.Close()

	summaries := make([]RunSummary, 0, limit)
	for rows.Next() {
		var (
			summary RunSummary
			created string
		)
		if scanErr := rows.Scan(&summary.ID, &summary.Tag, &summary.CSVPath, &summary.BarCount,
			&summary.StrategyCount, &summary.BestStrategy, &summary.BestReturn, &created); scanErr != nil {
			return nil, fmt.Errorf("history: 解析运行记录失败: %w", scanErr)
		}
		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = time.Time{}
		}
		summary.CreatedAt = ts
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: 读取运行记录失败: %w", err)
	}

	return summaries, nil
}

// Leaderboard 返回指定运行的排行榜，按名次升序。
func (s *Service) Leaderboard(ctx context.Context, runID int64) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, strategy, final_equity, total_return, max_drawdown, sharpe, win_rate
		 FROM league_leaderboard WHERE run_id = ? ORDER BY rank ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: 查询排行榜失败: %w", err)
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0, 8)
	for rows.Next() {
		var entry LeaderboardEntry
		if scanErr := rows.Scan(&entry.Rank, &entry.Strategy, &entry.FinalEquity,
			&entry.TotalReturn, &entry.MaxDrawdown, &entry.Sharpe, &entry.WinRate); scanErr != nil {
			return nil, fmt.Errorf("history: 解析排行榜失败: %w", scanErr)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: 读取排行榜失败: %w", err)
	}

	return entries, nil
}
