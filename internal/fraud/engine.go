package fraud

import (
	"fraudwatch/internal/config"
	"fraudwatch/internal/counter"
)

// Engine evaluates fraud heuristics against finished purchase attempts and
// answers the admission queries the purchase pipeline asks before charging.
// Thresholds come from the settings provider on every evaluation; history
// comes from the shared database handlers.
type Engine struct {
	settings config.Provider
	counter  counter.Counter
}

func NewEngine(settings config.Provider, ctr counter.Counter) *Engine {
	if settings == nil {
		settings = &config.StaticProvider{}
	}
	if ctr == nil {
		ctr = counter.NewMemoryCounter()
	}
	return &Engine{settings: settings, counter: ctr}
}
