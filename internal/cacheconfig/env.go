package cacheconfig

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFile loads process environment overrides from the first of
// .env/.env.local that exists. Existing environment variables are never
// overwritten.
func loadEnvFile() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
		return
	}
}

// hostOverrides are the host-process property names that take precedence
// over the YAML document, read directly from the environment after
// loadEnvFile has applied any .env file.
type hostOverrides struct {
	CacheEnabled            *bool
	RemoteEnabled           *bool
	RemoteSaveEnabled       *bool
	RemoteSaveFinal         *bool
	RemoteURL               *string
	RemoteServerID          *string
	FailFast                *bool
	BaselineURL             *string
	LazyRestore             *bool
	RestoreGeneratedSources *bool
	AlwaysRunPlugins        *string
	SkipCache               *bool
	ConfigPath              *string
	CacheCompile             *bool
}

func readHostOverrides() hostOverrides {
	return hostOverrides{
		CacheEnabled:            envBool("cache.enabled"),
		RemoteEnabled:           envBool("remote.enabled"),
		RemoteSaveEnabled:       envBool("remote.save.enabled"),
		RemoteSaveFinal:         envBool("remote.save.final"),
		RemoteURL:               envString("remote.url"),
		RemoteServerID:          envString("remote.server.id"),
		FailFast:                envBool("failFast"),
		BaselineURL:             envString("baselineUrl"),
		LazyRestore:             envBool("lazyRestore"),
		RestoreGeneratedSources: envBool("restoreGeneratedSources"),
		AlwaysRunPlugins:        envString("alwaysRunPlugins"),
		SkipCache:               envBool("skipCache"),
		ConfigPath:              envString("configPath"),
		CacheCompile:             envBool("cacheCompile"),
	}
}

func envString(property string) *string {
	v, ok := os.LookupEnv(propertyToEnvKey(property))
	if !ok {
		return nil
	}
	return &v
}

func envBool(property string) *bool {
	v, ok := os.LookupEnv(propertyToEnvKey(property))
	if !ok {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}

// propertyToEnvKey turns a dotted host property name (e.g. "remote.enabled")
// into its environment variable form (e.g. "REMOTE_ENABLED").
func propertyToEnvKey(property string) string {
	out := make([]byte, 0, len(property))
	for _, r := range property {
		switch {
		case r == '.':
			out = append(out, '_')
		case r >= 'a' && r <= 'z':
			out = append(out, byte(r-'a'+'A'))
		default:
			out = append(out, byte(r))
		}
	}
	return string(out)
}

// apply overlays any set host overrides onto the resolved config, taking
// precedence over both YAML and .env-sourced values.
func (h hostOverrides) apply(c *Config) {
	if h.CacheEnabled != nil {
		c.Enabled = *h.CacheEnabled
	}
	if h.RemoteEnabled != nil {
		c.Remote.Enabled = *h.RemoteEnabled
	}
	if h.RemoteSaveEnabled != nil {
		c.Remote.SaveToRemote = *h.RemoteSaveEnabled
	}
	if h.RemoteSaveFinal != nil {
		c.Remote.SaveFinal = *h.RemoteSaveFinal
	}
	if h.RemoteURL != nil {
		c.Remote.URL = *h.RemoteURL
	}
	if h.RemoteServerID != nil {
		c.Remote.ID = *h.RemoteServerID
	}
	if h.FailFast != nil {
		c.Remote.FailFast = *h.FailFast
	}
	if h.BaselineURL != nil {
		c.Remote.BaselineCacheURL = *h.BaselineURL
	}
	if h.LazyRestore != nil {
		c.Remote.LazyRestore = *h.LazyRestore
	}
}
