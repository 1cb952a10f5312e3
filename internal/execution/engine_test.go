package execution

import (
	"errors"
	"math"
	"testing"
	"time"

	"agent-league/internal/config"
)

func testEngine(t *testing.T, cfg config.ExecutionConfig) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	return engine
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewEngine_RejectsNonPositiveCapital(t *testing.T) {
	_, err := NewEngine(config.ExecutionConfig{InitialCapital: 0})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	_, err = NewEngine(config.ExecutionConfig{InitialCapital: -5})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestExecuteOrder_BuyAppliesSlippageAndFee(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000, SlippageBps: 2, FeeBps: 5})
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	trade, err := engine.ExecuteOrder(ts, OrderSideBuy, 2, 100)
	if err != nil {
		t.Fatalf("ExecuteOrder returned error: %v", err)
	}
	if trade == nil {
		t.Fatal("expected trade, got nil")
	}

	wantFill := 100 * 1.0002
	if !almostEqual(trade.FillPrice, wantFill) {
		t.Errorf("fill price: got %f want %f", trade.FillPrice, wantFill)
	}
	if trade.FillPrice <= 100 {
		t.Errorf("buy fill must be above close, got %f", trade.FillPrice)
	}
	wantNotional := 2 * wantFill
	wantFee := wantNotional * 0.0005
	if !almostEqual(trade.Notional, wantNotional) || !almostEqual(trade.Fee, wantFee) {
		t.Errorf("notional/fee: got %f/%f want %f/%f", trade.Notional, trade.Fee, wantNotional, wantFee)
	}
	if trade.RealizedPnl != 0 {
		t.Errorf("buy realized pnl must be zero, got %f", trade.RealizedPnl)
	}
	wantCash := 1000 - wantNotional - wantFee
	if !almostEqual(engine.Cash(), wantCash) {
		t.Errorf("cash after buy: got %f want %f", engine.Cash(), wantCash)
	}
	if !almostEqual(engine.PositionQty(), 2) {
		t.Errorf("position after buy: got %f want 2", engine.PositionQty())
	}
	if !almostEqual(engine.TotalEquity(100), wantCash+200) {
		t.Errorf("equity identity broken: got %f", engine.TotalEquity(100))
	}
}

func TestExecuteOrder_BuyClampedByCash(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000, SlippageBps: 0, FeeBps: 0})
	ts := time.Now().UTC()

	trade, err := engine.ExecuteOrder(ts, OrderSideBuy, 100, 100)
	if err != nil {
		t.Fatalf("ExecuteOrder returned error: %v", err)
	}
	if trade == nil {
		t.Fatal("expected clamped trade, got nil")
	}
	if !almostEqual(trade.Qty, 10) {
		t.Errorf("expected qty clamped to 10, got %f", trade.Qty)
	}
	if engine.Cash() < -1e-9 || engine.Cash() > 1e-9 {
		t.Errorf("expected cash exhausted to zero, got %f", engine.Cash())
	}

	// 现金耗尽后继续买入应为空操作。
	trade, err = engine.ExecuteOrder(ts, OrderSideBuy, 1, 100)
	if err != nil {
		t.Fatalf("ExecuteOrder returned error: %v", err)
	}
	if trade != nil {
		t.Fatalf("expected nil trade with no cash, got %+v", trade)
	}
}

func TestExecuteOrder_SellRealizesPnlAgainstCapitalizedCost(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000, SlippageBps: 0, FeeBps: 10})
	ts := time.Now().UTC()

	if _, err := engine.ExecuteOrder(ts, OrderSideBuy, 1, 100); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	// 成本含手续费：100 + 0.1。
	trade, err := engine.ExecuteOrder(ts, OrderSideSell, 1, 110)
	if err != nil {
		t.Fatalf("sell returned error: %v", err)
	}
	if trade == nil {
		t.Fatal("expected sell trade, got nil")
	}
	if trade.FillPrice >= 110 {
		t.Errorf("sell fill must not exceed close, got %f", trade.FillPrice)
	}
	wantPnl := (110 - 110*0.001) - 100.1
	if !almostEqual(trade.RealizedPnl, wantPnl) {
		t.Errorf("realized pnl: got %f want %f", trade.RealizedPnl, wantPnl)
	}
	if !almostEqual(engine.Cash(), 1000+wantPnl) {
		t.Errorf("flat cash must equal capital plus pnl: got %f want %f", engine.Cash(), 1000+wantPnl)
	}
	if engine.PositionQty() != 0 {
		t.Errorf("expected position snapped to zero, got %f", engine.PositionQty())
	}
}

func TestExecuteOrder_SellClampedByPosition(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000, SlippageBps: 2, FeeBps: 5})
	ts := time.Now().UTC()

	if _, err := engine.ExecuteOrder(ts, OrderSideBuy, 2, 100); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	trade, err := engine.ExecuteOrder(ts, OrderSideSell, 5, 110)
	if err != nil {
		t.Fatalf("sell returned error: %v", err)
	}
	if !almostEqual(trade.Qty, 2) {
		t.Errorf("expected sell clamped to 2, got %f", trade.Qty)
	}
	if engine.PositionQty() != 0 {
		t.Errorf("expected flat position, got %f", engine.PositionQty())
	}

	// 空仓再卖为空操作。
	trade, err = engine.ExecuteOrder(ts, OrderSideSell, 1, 110)
	if err != nil {
		t.Fatalf("sell returned error: %v", err)
	}
	if trade != nil {
		t.Fatalf("expected nil trade with no position, got %+v", trade)
	}
}

func TestExecuteOrder_ZeroQtyIsNoop(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000})
	trade, err := engine.ExecuteOrder(time.Now(), OrderSideBuy, 0, 100)
	if err != nil || trade != nil {
		t.Fatalf("expected noop, got trade=%v err=%v", trade, err)
	}
	// 数量非法时不校验方向。
	trade, err = engine.ExecuteOrder(time.Now(), OrderSide("short"), -1, 100)
	if err != nil || trade != nil {
		t.Fatalf("expected noop for non-positive qty, got trade=%v err=%v", trade, err)
	}
	if len(engine.Trades()) != 0 {
		t.Errorf("noop must not record trades, got %d", len(engine.Trades()))
	}
}

func TestExecuteOrder_InvalidSide(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000})
	_, err := engine.ExecuteOrder(time.Now(), OrderSide("short"), 1, 100)
	if !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
}

func TestExecuteOrder_SideCaseInsensitive(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000})
	trade, err := engine.ExecuteOrder(time.Now(), OrderSide("BUY"), 1, 100)
	if err != nil {
		t.Fatalf("ExecuteOrder returned error: %v", err)
	}
	if trade == nil || trade.Side != OrderSideBuy {
		t.Fatalf("expected normalized buy trade, got %+v", trade)
	}
}

func TestMarkToMarket_RecordsEquityCurve(t *testing.T) {
	engine := testEngine(t, config.ExecutionConfig{InitialCapital: 1000})
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	equity := engine.MarkToMarket(ts, 100)
	if !almostEqual(equity, 1000) {
		t.Errorf("expected equity 1000, got %f", equity)
	}
	if _, err := engine.ExecuteOrder(ts, OrderSideBuy, 5, 100); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	engine.MarkToMarket(ts.Add(time.Hour), 110)

	curve := engine.EquityCurve()
	if len(curve) != 2 {
		t.Fatalf("expected 2 equity points, got %d", len(curve))
	}
	last := curve[1]
	if !almostEqual(last.Equity, engine.Cash()+5*110) {
		t.Errorf("equity point mismatch: got %f", last.Equity)
	}
	if last.PositionQty != 5 || last.Close != 110 {
		t.Errorf("unexpected snapshot fields: %+v", last)
	}

	// 返回副本，修改不应影响内部状态。
	curve[0].Equity = -1
	if engine.EquityCurve()[0].Equity == -1 {
		t.Error("EquityCurve must return a copy")
	}
}
