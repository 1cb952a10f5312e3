package strategy

import (
	"errors"
	"strings"
	"testing"

	"agent-league/internal/config"
)

func defaultStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		SMA: config.SMAConfig{ShortWindow: 20, LongWindow: 50},
		RSI: config.RSIConfig{Period: 14, Lower: 30, Upper: 70, BuySize: 0.5},
	}
}

func TestRegistry_NamesInRegistrationOrder(t *testing.T) {
	registry := NewRegistry(defaultStrategyConfig())

	want := []string{NameBuyHold, NameSMACrossover, NameRSIMeanReversion}
	got := registry.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestRegistry_BuildReturnsFreshInstances(t *testing.T) {
	registry := NewRegistry(defaultStrategyConfig())

	first, err := registry.Build(NameBuyHold)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	second, err := registry.Build(NameBuyHold)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct instances per Build")
	}

	// 实例状态互不影响。
	first.OnBar(0, barsFromCloses([]float64{100})[0], 0)
	if sig := second.OnBar(0, barsFromCloses([]float64{100})[0], 0); sig.Action != ActionBuy {
		t.Fatalf("second instance must be unentered, got %+v", sig)
	}
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	registry := NewRegistry(defaultStrategyConfig())

	_, err := registry.Build("momentum")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "momentum") || !strings.Contains(msg, NameBuyHold) {
		t.Errorf("error must list offending and available names, got %q", msg)
	}
}

func TestRegistry_BuildPropagatesConfigErrors(t *testing.T) {
	cfg := defaultStrategyConfig()
	cfg.SMA.ShortWindow = 60
	registry := NewRegistry(cfg)

	if _, err := registry.Build(NameSMACrossover); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig from factory, got %v", err)
	}
}

func TestRegistry_HasAndReregister(t *testing.T) {
	registry := NewRegistry(defaultStrategyConfig())
	if !registry.Has(NameSMACrossover) {
		t.Error("expected sma_crossover to be registered")
	}
	if registry.Has("momentum") {
		t.Error("unexpected registration for momentum")
	}

	// 重复注册保序。
	registry.Register(NameBuyHold, func() (Agent, error) { return NewBuyAndHold(), nil })
	names := registry.Names()
	if names[0] != NameBuyHold || len(names) != 3 {
		t.Errorf("re-register must keep order, got %v", names)
	}
}
