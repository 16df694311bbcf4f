package enrichers

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/grimoire/internal/enrich"
)

var registry = map[string]*enrich.Enricher{}

func init() {
	for _, e := range []*enrich.Enricher{
		passiveEnricher,
		labelEnricher,
		classMaskEnricher,
		nameEnricher,
		iconEnricher,
		castTimeEnricher,
		castableWhileCastingEnricher,
		effectsEnricher,
		channelEnricher,
		gcdEnricher,
		chargesEnricher,
		cooldownEnricher,
		temporaryOverrideEnricher,
	} {
		registry[e.Name] = e
	}
}

// Registry returns every built-in enricher by name. The map is a copy.
func Registry() map[string]*enrich.Enricher {
	return maps.Clone(registry)
}

// Names lists the built-in enricher names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Get looks up a built-in enricher.
func Get(name string) (*enrich.Enricher, bool) {
	e, ok := registry[name]
	return e, ok
}

// Select resolves names to a request map for the engine. No names selects
// every built-in enricher. Dependencies of a selected enricher are pulled
// in by planning, so they need not be named.
func Select(names []string) (map[string]*enrich.Enricher, error) {
	if len(names) == 0 {
		return Registry(), nil
	}
	out := make(map[string]*enrich.Enricher, len(names))
	for _, name := range names {
		e, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown enricher %q (available: %v)", name, Names())
		}
		out[name] = e
	}
	return out, nil
}
