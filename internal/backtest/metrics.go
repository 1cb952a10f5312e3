package backtest

import (
	"math"

	"agent-league/internal/execution"
)

// Metrics 记录回测绩效指标。
type Metrics struct {
	TotalReturn float64
	MaxDrawdown float64
	Sharpe      float64
	WinRate     float64
}

const (
	// annualBars 为夏普年化系数的基准bar数。
	annualBars = 252
	// sharpeStdEpsilon 之下的波动视为零，夏普记0。
	sharpeStdEpsilon = 1e-8
)

func computeMetrics(curve []execution.EquityPoint, trades []execution.Trade, initialCapital float64) Metrics {
	if len(curve) == 0 {
		return Metrics{}
	}

	finalEquity := curve[len(curve)-1].Equity

	return Metrics{
		TotalReturn: finalEquity/initialCapital - 1.0,
		MaxDrawdown: computeDrawdown(curve),
		Sharpe:      computeSharpe(curve),
		WinRate:     computeWinRate(trades),
	}
}

func computeDrawdown(curve []execution.EquityPoint) float64 {
	var peak float64
	maxDD := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := point.Equity/peak - 1.0
		if dd < maxDD {
			maxDD = dd
		}
	}
	return math.Abs(maxDD)
}

func computeSharpe(curve []execution.EquityPoint) float64 {
	returns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			// 除零产生的±Inf按缺失值剔除。
			continue
		}
		ret := curve[i].Equity/prev - 1.0
		if math.IsNaN(ret) || math.IsInf(ret, 0) {
			continue
		}
		returns = append(returns, ret)
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	// 总体方差（ddof=0）。
	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	std := math.Sqrt(variance)
	if std <= sharpeStdEpsilon {
		return 0
	}
	return math.Sqrt(annualBars) * mean / std
}

func computeWinRate(trades []execution.Trade) float64 {
	var sells, wins int
	for _, trade := range trades {
		if trade.Side != execution.OrderSideSell {
			continue
		}
		sells++
		if trade.RealizedPnl > 0 {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}
