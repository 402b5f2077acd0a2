package collect

import (
	"time"

	"github.com/sells-group/watchtower/internal/config"
)

// FromConfig builds the configured reading sources: the optional JSON
// file plus every HTTP endpoint.
func FromConfig(cfg config.CollectConfig) []Source {
	var sources []Source
	if cfg.File != "" {
		sources = append(sources, NewFileSource(cfg.File))
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	for _, sc := range cfg.Sources {
		sources = append(sources, NewHTTPSource(sc.Name, sc.URL, timeout, sc.RatePerSec, sc.Burst))
	}
	return sources
}
