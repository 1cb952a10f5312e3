package exchange

import (
	"fmt"
	"time"

	"agent-league/internal/market"
)

// Candle 代表交易所返回的单根K线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Bar 将交易所K线转换为回测引擎使用的Bar。
func (c Candle) Bar() market.Bar {
	return market.Bar{
		Timestamp: c.Timestamp,
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
	}
}

// ToBars 批量转换K线，保持输入顺序。
func ToBars(candles []Candle) []market.Bar {
	bars := make([]market.Bar, len(candles))
	for i, candle := range candles {
		bars[i] = candle.Bar()
	}
	return bars
}

// RangeRequest 描述一次历史K线下载的时间窗口。
type RangeRequest struct {
	Timeframe string
	Since     time.Time
	Until     time.Time
}

// Validate 校验下载窗口，Until 为零值时取当前时间。
func (r *RangeRequest) Validate() error {
	if r.Timeframe == "" {
		return fmt.Errorf("exchange: timeframe 不能为空")
	}
	if r.Since.IsZero() {
		return fmt.Errorf("exchange: since 不能为空")
	}
	if r.Until.IsZero() {
		r.Until = time.Now().UTC()
	}
	if !r.Since.Before(r.Until) {
		return fmt.Errorf("exchange: since %s 必须早于 until %s", r.Since, r.Until)
	}
	return nil
}
