package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"agent-league/internal/config"
	"agent-league/internal/exchange"
	"agent-league/internal/log"
	"agent-league/internal/market"
)

func main() {
	var (
		configPath string
		symbol     string
		timeframe  string
		sinceRaw   string
		untilRaw   string
		outPath    string
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&symbol, "symbol", "", "交易对，默认使用 exchange.market")
	flag.StringVar(&timeframe, "timeframe", "", "K线周期，默认使用 exchange.timeframe")
	flag.StringVar(&sinceRaw, "since", "", "起始时间（RFC3339或2006-01-02），必填")
	flag.StringVar(&untilRaw, "until", "", "结束时间，默认当前时间")
	flag.StringVar(&outPath, "out", "", "输出CSV路径，默认使用 data.csv_path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if symbol == "" {
		symbol = cfg.Exchange.Market
	}
	if timeframe == "" {
		timeframe = cfg.Exchange.Timeframe
	}
	if outPath == "" {
		outPath = cfg.Data.CSVPath
	}

	if sinceRaw == "" {
		logger.Error("必须通过 -since 指定起始时间")
		os.Exit(1)
	}
	since, err := parseTime(sinceRaw)
	if err != nil {
		logger.Error("解析起始时间失败", zap.Error(err))
		os.Exit(1)
	}
	var until time.Time
	if untilRaw != "" {
		until, err = parseTime(untilRaw)
		if err != nil {
			logger.Error("解析结束时间失败", zap.Error(err))
			os.Exit(1)
		}
	}

	client, err := exchange.NewClient(cfg.Exchange, symbol, logger)
	if err != nil {
		logger.Error("初始化交易所客户端失败", zap.Error(err))
		os.Exit(1)
	}
	service := exchange.NewHistoryService(client, cfg.Exchange.PageLimit, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	candles, err := service.FetchRange(ctx, exchange.RangeRequest{
		Timeframe: timeframe,
		Since:     since,
		Until:     until,
	})
	if err != nil {
		logger.Error("下载历史K线失败", zap.Error(err))
		os.Exit(1)
	}
	if len(candles) == 0 {
		logger.Warn("时间窗口内没有K线数据",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
		)
		os.Exit(1)
	}

	if err := market.WriteCSV(outPath, exchange.ToBars(candles)); err != nil {
		logger.Error("写出CSV失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("历史K线已写出",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.String("path", outPath),
		zap.Int("bars", len(candles)),
	)
}

// parseTime 兼容RFC3339与日期两种输入，统一转为UTC。
func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法识别时间格式 %q", raw)
}
