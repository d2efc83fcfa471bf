package cacheconfig

// applyDefaults fills unset fields the same way the teacher's
// BuildDefaultApplier does: explicit zero-value checks, never a struct-tag
// default mechanism.
func applyDefaults(c *Config) {
	// enabled defaults true; only an explicit `enabled: false` in YAML or a
	// host override turns it off, so there is nothing to coerce here beyond
	// what Load's pre-unmarshal default does.

	if c.HashAlgorithm == "" {
		c.HashAlgorithm = "SHA-256"
	}
	if c.DefaultGlob == "" {
		c.DefaultGlob = "*"
	}
	if c.MaxLocalBuildsCached <= 0 {
		c.MaxLocalBuildsCached = 3
	}

	if c.Remote.Transport == "" {
		c.Remote.Transport = "http"
	}

	for i := range c.Input.Global.Includes {
		applyMatcherDefaults(&c.Input.Global.Includes[i], c.DefaultGlob)
	}
	for i := range c.Input.Global.Excludes {
		applyMatcherDefaults(&c.Input.Global.Excludes[i], c.DefaultGlob)
	}

	for i := range c.Input.Plugins {
		if c.Input.Plugins[i].DirScan.Mode == "" {
			c.Input.Plugins[i].DirScan.Mode = DirScanAuto
		}
	}
}

func applyMatcherDefaults(m *PathMatcher, defaultGlob string) {
	if m.Glob == "" {
		m.Glob = defaultGlob
	}
	if m.MatcherKind == "" {
		m.MatcherKind = MatcherGlob
	}
	if m.EntryKind == "" {
		m.EntryKind = EntryAny
	}
	if m.Recursive == nil {
		recursive := true
		m.Recursive = &recursive
	}
}
