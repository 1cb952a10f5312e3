package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"agent-league/internal/backtest"
	"agent-league/internal/execution"
)

var (
	leaderboardHeader = []string{"strategy", "final_equity", "total_return", "max_drawdown", "sharpe", "win_rate"}
	tradesHeader      = []string{"timestamp", "side", "qty", "fill_price", "notional", "fee", "realized_pnl", "cash_after", "position_after"}
	equityHeader      = []string{"timestamp", "equity", "cash", "position_qty", "close"}
)

// Writer 将联赛结果导出为一组CSV工件：排行榜加每个策略的成交与权益曲线。
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter 创建结果导出器，输出目录不存在时自动创建。
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("export: 输出目录不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: 创建输出目录失败: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// DefaultRunTag 以UTC时间生成形如 run_20240101_000000 的运行标签。
func DefaultRunTag(now time.Time) string {
	return now.UTC().Format("run_20060102_150405")
}

// Save 按运行标签写出全部工件，返回工件键到文件路径的映射。
// 文件按排行榜次序写出，策略名中的空格替换为下划线。
func (w *Writer) Save(result backtest.LeagueResult, runTag string) (map[string]string, error) {
	if runTag == "" {
		runTag = DefaultRunTag(time.Now())
	}

	artifacts := make(map[string]string, 1+2*len(result.Leaderboard))

	leaderboardPath := filepath.Join(w.dir, fmt.Sprintf("%s_leaderboard.csv", runTag))
	if err := w.writeLeaderboard(leaderboardPath, result.Leaderboard); err != nil {
		return nil, err
	}
	artifacts["leaderboard"] = leaderboardPath

	for _, row := range result.Leaderboard {
		backtestResult, ok := result.Backtests[row.Strategy]
		if !ok {
			continue
		}
		safeName := strings.ReplaceAll(row.Strategy, " ", "_")

		tradesPath := filepath.Join(w.dir, fmt.Sprintf("%s_%s_trades.csv", runTag, safeName))
		if err := w.writeTrades(tradesPath, backtestResult.Trades); err != nil {
			return nil, err
		}
		artifacts[row.Strategy+"_trades"] = tradesPath

		equityPath := filepath.Join(w.dir, fmt.Sprintf("%s_%s_equity.csv", runTag, safeName))
		if err := w.writeEquity(equityPath, backtestResult.EquityCurve); err != nil {
			return nil, err
		}
		artifacts[row.Strategy+"_equity"] = equityPath
	}

	w.logger.Info("联赛工件已导出",
		zap.String("run_tag", runTag),
		zap.String("dir", w.dir),
		zap.Int("files", len(artifacts)),
	)
	return artifacts, nil
}

func (w *Writer) writeLeaderboard(path string, rows []backtest.Row) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.Strategy,
			formatFloat(row.FinalEquity),
			formatFloat(row.TotalReturn),
			formatFloat(row.MaxDrawdown),
			formatFloat(row.Sharpe),
			formatFloat(row.WinRate),
		})
	}
	return writeCSV(path, leaderboardHeader, records)
}

func (w *Writer) writeTrades(path string, trades []execution.Trade) error {
	records := make([][]string, 0, len(trades))
	for _, trade := range trades {
		records = append(records, []string{
			trade.Timestamp.UTC().Format(time.RFC3339),
			string(trade.Side),
			formatFloat(trade.Qty),
			formatFloat(trade.FillPrice),
			formatFloat(trade.Notional),
			formatFloat(trade.Fee),
			formatFloat(trade.RealizedPnl),
			formatFloat(trade.CashAfter),
			formatFloat(trade.PositionAfter),
		})
	}
	return writeCSV(path, tradesHeader, records)
}

func (w *Writer) writeEquity(path string, curve []execution.EquityPoint) error {
	records := make([][]string, 0, len(curve))
	for _, point := range curve {
		records = append(records, []string{
			point.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(point.Equity),
			formatFloat(point.Cash),
			formatFloat(point.PositionQty),
			formatFloat(point.Close),
		})
	}
	return writeCSV(path, equityHeader, records)
}

// writeCSV 写出带表头的CSV文件，无数据时仅保留表头。
func writeCSV(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: 创建文件 %q 失败: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("export: 写入表头失败: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("export: 写入数据行失败: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("export: 刷新文件 %q 失败: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
