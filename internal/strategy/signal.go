package strategy

// Action 表示策略给出的交易动作。
type Action string

const (
	ActionHold Action = "hold"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Signal 为策略在单根K线上的输出，Size 为权益占比，取值[0,1]。
type Signal struct {
	Action Action
	Size   float64
}

// HoldSignal 为默认观望信号。
var HoldSignal = Signal{Action: ActionHold, Size: 0}
