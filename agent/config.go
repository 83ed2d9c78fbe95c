package agent

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the resolved pipeline settings. Immutable after
// ResolveConfig.
type Config struct {
	// NumberOfInitialQueries is how many search queries to generate
	// from the user's question.
	NumberOfInitialQueries int

	// SearchDepth is the maximum PMIDs requested per query.
	SearchDepth int

	// MaxResearchLoops bounds the reflect-and-search cycle.
	MaxResearchLoops int
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		NumberOfInitialQueries: 3,
		SearchDepth:            20,
		MaxResearchLoops:       2,
	}
}

// ResolveConfig merges environment variables and caller overrides into
// a Config. Per option the environment variable (uppercased option
// name) wins, then the override, then the default. Unrecognized
// override keys and unparsable values are ignored; there is no error
// path.
func ResolveConfig(overrides map[string]string) Config {
	cfg := DefaultConfig()
	cfg.NumberOfInitialQueries = resolveInt("number_of_initial_queries", overrides, cfg.NumberOfInitialQueries)
	cfg.SearchDepth = resolveInt("search_depth", overrides, cfg.SearchDepth)
	cfg.MaxResearchLoops = resolveInt("max_research_loops", overrides, cfg.MaxResearchLoops)
	return cfg
}

func resolveInt(name string, overrides map[string]string, def int) int {
	if raw := os.Getenv(strings.ToUpper(name)); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	if raw, ok := overrides[name]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}
