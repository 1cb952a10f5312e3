package strategy

import (
	"fmt"
	"strings"

	"agent-league/internal/config"
)

// Factory 构建一个全新的策略实例。
type Factory func() (Agent, error)

// Registry 按注册顺序维护策略工厂。
// 每次 Build 返回全新实例，保证并行回测之间没有共享可变状态。
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry 注册内置基准策略。
func NewRegistry(cfg config.StrategyConfig) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameBuyHold, func() (Agent, error) {
		return NewBuyAndHold(), nil
	})
	r.Register(NameSMACrossover, func() (Agent, error) {
		return NewSMACrossover(cfg.SMA)
	})
	r.Register(NameRSIMeanReversion, func() (Agent, error) {
		return NewRSIMeanReversion(cfg.RSI)
	})
	return r
}

// Register 登记策略工厂，重复注册覆盖旧工厂但保留原次序。
func (r *Registry) Register(name string, factory Factory) {
	if _, exists := r.factories[name]; !exists {
		r.order = append(r.order, name)
	}
	r.factories[name] = factory
}

// Names 按注册顺序返回全部策略名。
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Has 判断策略是否已注册。
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Build 构建指定策略的全新实例，未注册时返回 ErrUnknownStrategy。
func (r *Registry) Build(name string) (Agent, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("strategy: 未注册的策略 %q，可用策略: %s: %w",
			name, strings.Join(r.order, ", "), ErrUnknownStrategy)
	}
	return factory()
}
