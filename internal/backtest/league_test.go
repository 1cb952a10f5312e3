package backtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"agent-league/internal/strategy"
)

func testLeague(t *testing.T, registry *strategy.Registry) *League {
	t.Helper()
	runner := testRunner(t, defaultExecConfig(), defaultRiskConfig())
	league, err := NewLeague(runner, registry, nil)
	if err != nil {
		t.Fatalf("NewLeague returned error: %v", err)
	}
	return league
}

func idleFactory(name string) strategy.Factory {
	return func() (strategy.Agent, error) {
		return &scriptedAgent{name: name}, nil
	}
}

func TestNewLeague_Validation(t *testing.T) {
	runner := testRunner(t, defaultExecConfig(), defaultRiskConfig())
	registry := strategy.NewRegistry(defaultStrategyConfig())

	if _, err := NewLeague(nil, registry, nil); err == nil {
		t.Error("expected error for nil runner")
	}
	if _, err := NewLeague(runner, nil, nil); err == nil {
		t.Error("expected error for nil registry")
	}
}

func TestLeagueRun_SortsByTotalReturnDescending(t *testing.T) {
	registry := strategy.NewRegistry(defaultStrategyConfig())
	registry.Register("idle_a", idleFactory("idle_a"))
	registry.Register("idle_b", idleFactory("idle_b"))
	league := testLeague(t, registry)

	bars := hourlyBars([]float64{100, 110, 121, 133.1})
	res, err := league.Run(context.Background(), bars, []string{"idle_a", strategy.NameBuyHold, "idle_b"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(res.Leaderboard) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Leaderboard))
	}
	if res.Leaderboard[0].Strategy != strategy.NameBuyHold {
		t.Errorf("buy_hold must lead on rising data, got %s", res.Leaderboard[0].Strategy)
	}
	for i := 1; i < len(res.Leaderboard); i++ {
		if res.Leaderboard[i].TotalReturn > res.Leaderboard[i-1].TotalReturn {
			t.Errorf("leaderboard not descending at row %d", i)
		}
	}
	// 零收益平局保持选择顺序。
	if res.Leaderboard[1].Strategy != "idle_a" || res.Leaderboard[2].Strategy != "idle_b" {
		t.Errorf("tie order broken: got [%s %s]", res.Leaderboard[1].Strategy, res.Leaderboard[2].Strategy)
	}

	winner := res.Leaderboard[0]
	if math.Abs(winner.FinalEquity-1331) > 1e-9 {
		t.Errorf("buy_hold final equity: got %f want 1331", winner.FinalEquity)
	}
	if math.Abs(winner.TotalReturn-0.331) > 1e-9 {
		t.Errorf("buy_hold total return: got %f want 0.331", winner.TotalReturn)
	}
}

func TestLeagueRun_TieKeepsSelectionOrder(t *testing.T) {
	registry := strategy.NewRegistry(defaultStrategyConfig())
	registry.Register("idle_a", idleFactory("idle_a"))
	registry.Register("idle_b", idleFactory("idle_b"))
	league := testLeague(t, registry)

	bars := hourlyBars([]float64{100, 100})
	res, err := league.Run(context.Background(), bars, []string{"idle_b", "idle_a"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Leaderboard[0].Strategy != "idle_b" || res.Leaderboard[1].Strategy != "idle_a" {
		t.Errorf("expected selection order [idle_b idle_a], got [%s %s]",
			res.Leaderboard[0].Strategy, res.Leaderboard[1].Strategy)
	}
}

func TestLeagueRun_UnknownStrategiesFailFast(t *testing.T) {
	league := testLeague(t, strategy.NewRegistry(defaultStrategyConfig()))

	res, err := league.Run(context.Background(), hourlyBars([]float64{100}), []string{strategy.NameBuyHold, "bogus", "nope"})
	if !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"bogus", "nope", strategy.NameBuyHold} {
		if !strings.Contains(msg, want) {
			t.Errorf("error must mention %q, got %q", want, msg)
		}
	}
	if len(res.Leaderboard) != 0 || len(res.Backtests) != 0 {
		t.Errorf("no partial leaderboard allowed, got %+v", res)
	}
}

func TestLeagueRun_DefaultSelectionRunsAllRegistered(t *testing.T) {
	league := testLeague(t, strategy.NewRegistry(defaultStrategyConfig()))

	bars := hourlyBars([]float64{100, 105, 110, 115})
	res, err := league.Run(context.Background(), bars, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(res.Leaderboard) != 3 || len(res.Backtests) != 3 {
		t.Fatalf("expected all 3 registered strategies, got %d rows / %d results",
			len(res.Leaderboard), len(res.Backtests))
	}
	for _, name := range []string{strategy.NameBuyHold, strategy.NameSMACrossover, strategy.NameRSIMeanReversion} {
		result, ok := res.Backtests[name]
		if !ok {
			t.Fatalf("missing backtest result for %s", name)
		}
		if result.Strategy != name {
			t.Errorf("result name mismatch: got %s want %s", result.Strategy, name)
		}
		if len(result.EquityCurve) != len(bars) {
			t.Errorf("%s: expected %d equity points, got %d", name, len(bars), len(result.EquityCurve))
		}
	}

	// 均线与RSI整段预热观望，收益为0，买入持有领跑。
	if res.Leaderboard[0].Strategy != strategy.NameBuyHold {
		t.Errorf("expected buy_hold first, got %s", res.Leaderboard[0].Strategy)
	}
	if res.Leaderboard[1].Strategy != strategy.NameSMACrossover || res.Leaderboard[2].Strategy != strategy.NameRSIMeanReversion {
		t.Errorf("tied strategies must keep registration order, got [%s %s]",
			res.Leaderboard[1].Strategy, res.Leaderboard[2].Strategy)
	}
}

func TestLeagueRun_RowMirrorsResultMetrics(t *testing.T) {
	league := testLeague(t, strategy.NewRegistry(defaultStrategyConfig()))

	bars := hourlyBars([]float64{100, 110, 121})
	res, err := league.Run(context.Background(), bars, []string{strategy.NameBuyHold})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	row := res.Leaderboard[0]
	result := res.Backtests[strategy.NameBuyHold]
	if row.TotalReturn != result.Metrics.TotalReturn ||
		row.MaxDrawdown != result.Metrics.MaxDrawdown ||
		row.Sharpe != result.Metrics.Sharpe ||
		row.WinRate != result.Metrics.WinRate {
		t.Errorf("row metrics diverge from result: row=%+v metrics=%+v", row, result.Metrics)
	}
	final := result.EquityCurve[len(result.EquityCurve)-1].Equity
	if row.FinalEquity != final {
		t.Errorf("final equity mismatch: row=%f curve=%f", row.FinalEquity, final)
	}
}

func TestLeagueRun_FactoryErrorsPropagate(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.SMA.ShortWindow = 60 // 大于长窗口，构造必须失败
	league := testLeague(t, strategy.NewRegistry(cfg))

	_, err := league.Run(context.Background(), hourlyBars([]float64{100}), []string{strategy.NameSMACrossover})
	if !errors.Is(err, strategy.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
