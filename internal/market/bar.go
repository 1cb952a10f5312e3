package market

import "time"

// Bar 代表单根OHLCV K线。
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Closes 提取收盘价序列，供指标计算使用。
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}
	return out
}
