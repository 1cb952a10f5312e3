package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"agent-league/internal/config"
)

// Client 从交易所拉取历史K线，内置指数退避重试。
// 仅服务于数据准备（cmd/fetch），回测循环从不触达网络。
type Client struct {
	cfg      config.ExchangeConfig
	logger   *zap.Logger
	exchange *ccxt.Binanceusdm
	symbol   string

	loadOnce sync.Once
	loadErr  error
}

// NewClient 构造 Binance USDⓈ-M 行情客户端。
func NewClient(cfg config.ExchangeConfig, symbol string, logger *zap.Logger) (*Client, error) {
	if symbol == "" {
		return nil, fmt.Errorf("exchange: symbol 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		exchange: ex,
		symbol:   symbol,
	}, nil
}

// Symbol 返回交易对符号。
func (c *Client) Symbol() string {
	return c.symbol
}

// FetchCandles 拉取一页K线。since 非零时从该时间点（含）开始。
func (c *Client) FetchCandles(ctx context.Context, timeframe string, since time.Time, limit int64) ([]Candle, error) {
	if limit <= 0 {
		limit = 1
	}
	if err := c.loadMarkets(ctx); err != nil {
		return nil, err
	}

	opts := []ccxt.FetchOHLCVOptions{
		ccxt.WithFetchOHLCVTimeframe(timeframe),
		ccxt.WithFetchOHLCVLimit(limit),
	}
	if !since.IsZero() {
		opts = append(opts, ccxt.WithFetchOHLCVSince(since.UTC().UnixMilli()))
	}

	var raw []ccxt.OHLCV
	err := c.withRetry(ctx, fmt.Sprintf("fetch_ohlcv_%s", timeframe), func() error {
		result, err := c.exchange.FetchOHLCV(c.symbol, opts...)
		if err != nil {
			return err
		}
		raw = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(raw))
	for _, item := range raw {
		candles = append(candles, Candle{
			Timestamp: time.UnixMilli(item.Timestamp).UTC(),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			Volume:    item.Volume,
		})
	}
	return candles, nil
}

// loadMarkets 只加载一次市场元数据，失败结果同样被记住。
func (c *Client) loadMarkets(ctx context.Context) error {
	c.loadOnce.Do(func() {
		c.loadErr = c.withRetry(ctx, "load_markets", func() error {
			_, err := c.exchange.LoadMarkets()
			return err
		})
		if c.loadErr == nil {
			c.logger.Info("市场元数据加载完成", zap.String("symbol", c.symbol))
		}
	})
	return c.loadErr
}

// withRetry 以指数退避执行交易所调用。
// 仅网络与限流类错误重试，维护状态与不可重试错误立即上抛。
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				c.logger.Info("交易所调用重试后成功",
					zap.String("op", op),
					zap.Int("attempts", attempt),
				)
			}
			return nil
		}

		normalized, retriable := classifyError(err)
		lastErr = normalized

		if errors.Is(normalized, ErrMaintenance) {
			c.logger.Warn("交易所维护中", zap.String("op", op), zap.Error(normalized))
			return normalized
		}
		if !retriable || attempt == maxAttempts {
			break
		}

		wait := c.backoff(attempt)
		c.logger.Warn("交易所调用失败，等待重试",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalized),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.Error("交易所调用失败", zap.String("op", op), zap.Error(lastErr))
	return lastErr
}

// backoff 按尝试次数翻倍延迟，封顶于最大延迟。
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	ceiling := c.cfg.Retry.MaxDelay
	if ceiling <= 0 {
		ceiling = 5 * time.Second
	}

	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		delay = ceiling
	}
	return delay
}
