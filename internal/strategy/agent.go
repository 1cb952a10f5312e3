package strategy

import "agent-league/internal/market"

// Agent 是策略统一接口，由回测器按K线驱动。
// 实现必须满足：Reset 后多次回测互不影响；Prepare 对任意长度数据不崩溃；
// OnBar 只读取 index 及之前的信息，不得前视。
type Agent interface {
	// Name 返回策略注册名。
	Name() string
	// Reset 清空上一次回测遗留的内部状态。
	Reset()
	// Prepare 基于全量历史预计算指标序列。
	Prepare(bars []market.Bar)
	// OnBar 依据当根K线与当前持仓产生交易信号。
	OnBar(index int, bar market.Bar, positionQty float64) Signal
}
