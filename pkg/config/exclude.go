package config

import (
	"path"
	"strings"
)

// Normalize lowercases exclude patterns and drops blank ones
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	patterns := make([]string, 0, len(c.ExcludeClusters))
	for _, p := range c.ExcludeClusters {
		if p = foldName(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	c.ExcludeClusters = patterns
}

// IsClusterExcluded matches a cluster name against the exclude globs,
// ignoring case. A malformed glob only matches its literal text.
func (c *Config) IsClusterExcluded(clusterName string) bool {
	if c == nil {
		return false
	}
	name := foldName(clusterName)
	if name == "" {
		return false
	}
	for _, raw := range c.ExcludeClusters {
		pattern := foldName(raw)
		if pattern == "" {
			continue
		}
		if ok, err := path.Match(pattern, name); ok || (err != nil && pattern == name) {
			return true
		}
	}
	return false
}

func foldName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
