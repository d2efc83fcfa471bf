package cacheconfig

import (
	"git.home.luguber.info/inful/reactorcache/internal/foundation/normalization"
	"git.home.luguber.info/inful/reactorcache/internal/retry"
)

var dirScanModes = normalization.NewEnumNormalizer("dirScanMode", map[string]DirScanMode{
	"off":    DirScanOff,
	"auto":   DirScanAuto,
	"custom": DirScanCustom,
}, DirScanAuto)

var matcherKinds = normalization.NewEnumNormalizer("matcherKind", map[string]MatcherKind{
	"glob":  MatcherGlob,
	"regex": MatcherRegex,
}, MatcherGlob)

var entryKinds = normalization.NewEnumNormalizer("entryKind", map[string]EntryKind{
	"any":       EntryAny,
	"file":      EntryFile,
	"directory": EntryDirectory,
}, EntryAny)

var retryBackoffModes = normalization.NewEnumNormalizer("retryBackoff", map[string]retry.Mode{
	"fixed":       retry.ModeFixed,
	"linear":      retry.ModeLinear,
	"exponential": retry.ModeExponential,
}, retry.ModeLinear)

// normalize canonicalizes every enumerated field in-place, matching unknown
// or blank values to their documented defaults rather than rejecting them.
func normalize(c *Config) {
	for i := range c.Input.Plugins {
		c.Input.Plugins[i].DirScan.Mode = dirScanModes.Normalize(string(c.Input.Plugins[i].DirScan.Mode))
	}
	for i := range c.Input.Global.Includes {
		normalizeMatcher(&c.Input.Global.Includes[i])
	}
	for i := range c.Input.Global.Excludes {
		normalizeMatcher(&c.Input.Global.Excludes[i])
	}
}

func normalizeMatcher(m *PathMatcher) {
	m.MatcherKind = matcherKinds.Normalize(string(m.MatcherKind))
	m.EntryKind = entryKinds.Normalize(string(m.EntryKind))
}

// RetryMode resolves the configured remote-transport backoff mode, falling
// back to retry's own default when unset or unrecognized.
func RetryMode(raw string) retry.Mode {
	return retryBackoffModes.Normalize(raw)
}
