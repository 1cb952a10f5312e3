package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "league"
)

// defaults 是全部配置项的出厂值，键与 YAML 路径一一对应。
var defaults = map[string]any{
	"app.environment": "development",

	"data.csv_path": "data/sample_ohlcv.csv",

	"exchange.name":               "binanceusdm",
	"exchange.market":             "BTC/USDT:USDT",
	"exchange.timeframe":          "1h",
	"exchange.use_sandbox":        false,
	"exchange.page_limit":         1000,
	"exchange.retry.max_attempts": 5,
	"exchange.retry.min_delay":    "500ms",
	"exchange.retry.max_delay":    "5s",

	"execution.initial_capital": 10000.0,
	"execution.slippage_bps":    2.0,
	"execution.fee_bps":         5.0,

	"risk.max_position_pct":       1.0,
	"risk.max_daily_drawdown_pct": 0.05,
	"risk.min_trade_notional":     10.0,

	"strategy.sma.short_window": 20,
	"strategy.sma.long_window":  50,
	"strategy.rsi.period":       14,
	"strategy.rsi.lower":        30.0,
	"strategy.rsi.upper":        70.0,
	"strategy.rsi.buy_size":     0.5,

	"backtest.strategies": []string{},

	"output.dir": "results",

	"database.path":              "data/league_history.db",
	"database.max_open_conns":    4,
	"database.max_idle_conns":    4,
	"database.conn_max_lifetime": "1h",
	"database.in_memory":         false,

	"logging.level":              "info",
	"logging.encoding":           "console",
	"logging.development":        true,
	"logging.output_paths":       []string{"stdout"},
	"logging.error_output_paths": []string{"stderr"},
}

// Load 读取配置文件并结合环境变量返回 Config。
// 环境变量以 LEAGUE_ 为前缀，层级点号替换为下划线。
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	v := viper.NewWithOptions(viper.EnvKeyReplacer(strings.NewReplacer(".", "_")))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
