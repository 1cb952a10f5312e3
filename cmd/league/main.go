package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"agent-league/internal/app"
	"agent-league/internal/config"
	"agent-league/internal/log"
	"agent-league/internal/store"
)

func main() {
	var (
		configPath string
		csvPath    string
		runTag     string
		historyN   int
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&csvPath, "csv", "", "OHLCV数据文件，覆盖配置中的 data.csv_path")
	flag.StringVar(&runTag, "run-tag", "", "本次运行标签，默认按UTC时间自动生成")
	flag.IntVar(&historyN, "history", 0, "仅列出最近N次归档运行，不执行回测")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if csvPath != "" {
		cfg.Data.CSVPath = csvPath
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	leagueApp := app.New(cfg, logger, sqliteStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if historyN > 0 {
		if err := leagueApp.History(ctx, historyN); err != nil {
			logger.Error("查询归档历史失败", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := leagueApp.Run(ctx, runTag); err != nil {
		logger.Error("联赛回测异常", zap.Error(err))
		os.Exit(1)
	}
}
