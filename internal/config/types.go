package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Data      DataConfig      `mapstructure:"data"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Output    OutputConfig    `mapstructure:"output"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// DataConfig 指定回测输入数据。
type DataConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

// ExchangeConfig 描述行情下载的交易所连接信息。
type ExchangeConfig struct {
	Name       string      `mapstructure:"name"`
	Market     string      `mapstructure:"market"`
	Timeframe  string      `mapstructure:"timeframe"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	PageLimit  int         `mapstructure:"page_limit"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ExecutionConfig 控制订单撮合的资金与成本模型。
type ExecutionConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	SlippageBps    float64 `mapstructure:"slippage_bps"`
	FeeBps         float64 `mapstructure:"fee_bps"`
}

// RiskConfig 管理风控参数。
type RiskConfig struct {
	MaxPositionPct      float64 `mapstructure:"max_position_pct"`
	MaxDailyDrawdownPct float64 `mapstructure:"max_daily_drawdown_pct"`
	MinTradeNotional    float64 `mapstructure:"min_trade_notional"`
}

// StrategyConfig 汇总各策略的参数。
type StrategyConfig struct {
	SMA SMAConfig `mapstructure:"sma"`
	RSI RSIConfig `mapstructure:"rsi"`
}

// SMAConfig 为均线交叉策略参数。
type SMAConfig struct {
	ShortWindow int `mapstructure:"short_window"`
	LongWindow  int `mapstructure:"long_window"`
}

// RSIConfig 为RSI均值回归策略参数。
type RSIConfig struct {
	Period  int     `mapstructure:"period"`
	Lower   float64 `mapstructure:"lower"`
	Upper   float64 `mapstructure:"upper"`
	BuySize float64 `mapstructure:"buy_size"`
}

// BacktestConfig 控制联赛回测的策略选择。
type BacktestConfig struct {
	Strategies []string `mapstructure:"strategies"`
}

// OutputConfig 控制结果文件的落盘位置。
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig 管理历史记录数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Data.CSVPath == "" {
		err = multierr.Append(err, errors.New("data.csv_path 不能为空"))
	}
	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.Market == "" {
		err = multierr.Append(err, errors.New("exchange.market 不能为空"))
	}
	if c.Exchange.Timeframe == "" {
		err = multierr.Append(err, errors.New("exchange.timeframe 不能为空"))
	}
	if c.Exchange.PageLimit <= 0 {
		err = multierr.Append(err, errors.New("exchange.page_limit 必须大于0"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if c.Execution.InitialCapital <= 0 {
		err = multierr.Append(err, errors.New("execution.initial_capital 必须大于0"))
	}
	if c.Execution.SlippageBps < 0 {
		err = multierr.Append(err, errors.New("execution.slippage_bps 不能为负"))
	}
	if c.Execution.FeeBps < 0 {
		err = multierr.Append(err, errors.New("execution.fee_bps 不能为负"))
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		err = multierr.Append(err, errors.New("risk.max_position_pct 必须位于(0,1]"))
	}
	if c.Risk.MaxDailyDrawdownPct <= 0 || c.Risk.MaxDailyDrawdownPct >= 1 {
		err = multierr.Append(err, errors.New("risk.max_daily_drawdown_pct 必须位于(0,1)"))
	}
	if c.Risk.MinTradeNotional < 0 {
		err = multierr.Append(err, errors.New("risk.min_trade_notional 不能为负"))
	}
	if c.Strategy.SMA.ShortWindow < 1 {
		err = multierr.Append(err, errors.New("strategy.sma.short_window 必须大于等于1"))
	}
	if c.Strategy.SMA.ShortWindow >= c.Strategy.SMA.LongWindow {
		err = multierr.Append(err, errors.New("strategy.sma.short_window 必须小于 long_window"))
	}
	if c.Strategy.RSI.Period < 1 {
		err = multierr.Append(err, errors.New("strategy.rsi.period 必须大于等于1"))
	}
	if c.Strategy.RSI.Lower >= c.Strategy.RSI.Upper {
		err = multierr.Append(err, errors.New("strategy.rsi.lower 必须小于 upper"))
	}
	if c.Strategy.RSI.BuySize < 0 || c.Strategy.RSI.BuySize > 1 {
		err = multierr.Append(err, errors.New("strategy.rsi.buy_size 必须位于[0,1]"))
	}
	if c.Output.Dir == "" {
		err = multierr.Append(err, errors.New("output.dir 不能为空"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
