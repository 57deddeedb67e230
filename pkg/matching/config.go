package matching

import "time"

// Config contains configuration for the matching service. It is copied into
// the service at construction and never changed afterwards.
type Config struct {
	CheckFuzzy         bool          // Default for CheckOptions.CheckFuzzy (default: true)
	CascadeConcurrency int           // Dependents re-evaluated at once (default: 4)
	CascadeItemTimeout time.Duration // Upper bound for one dependent's check and persist (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckFuzzy:         true,
		CascadeConcurrency: 4,
		CascadeItemTimeout: 30 * time.Second,
	}
}

// DefaultOptions returns the check options used when a caller supplies none
func (c Config) DefaultOptions() CheckOptions {
	opts := DefaultCheckOptions()
	opts.CheckFuzzy = Bool(c.CheckFuzzy)
	return opts
}

func (c Config) cascadeLimit() int {
	if c.CascadeConcurrency < 1 {
		return 1
	}
	return c.CascadeConcurrency
}
