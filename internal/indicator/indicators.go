package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// NeutralRSI 为RSI不可用时的中性占位值。
const NeutralRSI = 50.0

// Sma 计算简单移动平均，窗口未满的位置返回 NaN。
func Sma(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 || len(values) < window {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	copy(out, talib.Sma(values, window))
	for i := 0; i < window-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

// Rsi 按 Wilder 平滑（α=1/period）计算相对强弱指数。
// 预热期不足 period 根、或平均亏损为零时，该位置输出中性值50。
func Rsi(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = NeutralRSI
	}
	if period <= 0 || len(values) < 2 {
		return out
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = (1-alpha)*avgGain + alpha*gain
			avgLoss = (1-alpha)*avgLoss + alpha*loss
		}
		if i < period || avgLoss == 0 {
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}
