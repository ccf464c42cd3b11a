package indicator

import (
	"maps"
	"slices"
	"sync"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// IndicatorRegistry maps indicator names to implementations. Implementations are safe for concurrent use.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
}

type mapRegistry struct {
	mu      sync.RWMutex
	entries map[types.IndicatorType]Indicator
}

// NewIndicatorRegistry returns an empty registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &mapRegistry{
		mu:      sync.RWMutex{},
		entries: make(map[types.IndicatorType]Indicator),
	}
}

// NewDefaultRegistry returns a registry holding RSI, Volatility and CumulativeReturn.
// Registries are only written during setup and are safe to share between evaluations afterwards.
func NewDefaultRegistry() IndicatorRegistry {
	registry := NewIndicatorRegistry()

	for _, indicator := range []Indicator{NewRSI(), NewVolatility(), NewCumulativeReturn()} {
		// names are distinct, registration cannot fail
		_ = registry.RegisterIndicator(indicator)
	}

	return registry
}

// Lookup resolves the indicator registered for name. Names outside AllIndicatorTypes fail
// with ErrCodeUnsupportedIndicator, registered custom names included.
func Lookup(registry IndicatorRegistry, name types.IndicatorType) (Indicator, error) {
	if !name.Supported() {
		return nil, errors.Newf(errors.ErrCodeUnsupportedIndicator, "unsupported indicator: %s", name)
	}

	return registry.GetIndicator(name)
}

func (r *mapRegistry) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.entries[indicator.Name()]; taken {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", indicator.Name())
	}

	r.entries[indicator.Name()] = indicator

	return nil
}

func (r *mapRegistry) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if indicator, ok := r.entries[name]; ok {
		return indicator, nil
	}

	return nil, errNotRegistered(name)
}

// ListIndicators returns the registered names in sorted order.
func (r *mapRegistry) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.entries))
}

func (r *mapRegistry) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return errNotRegistered(name)
	}

	delete(r.entries, name)

	return nil
}

func errNotRegistered(name types.IndicatorType) error {
	return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
}
