package cacheconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
)

// Loaded bundles a resolved Config with the host-process overrides observed
// at load time, so callers that need session-level flags (restoreGeneratedSources,
// alwaysRunPlugins, skipCache, cacheCompile) don't have to re-read the environment.
type Loaded struct {
	Config *Config
	Host   hostOverrides
}

// Load reads the build-cache YAML document at path, expands environment
// variables, applies .env overrides, normalizes enums, fills defaults, then
// overlays host-process property overrides. The returned Config is immutable;
// callers MUST NOT mutate it after Load returns.
func Load(path string) (*Loaded, error) {
	loadEnvFile()

	host := readHostOverrides()
	if host.ConfigPath != nil {
		path = *host.ConfigPath
	}

	cfg := &Config{Enabled: true}

	data, err := os.ReadFile(path) // #nosec G304 - path is an operator-supplied config location
	if err != nil {
		if os.IsNotExist(err) {
			// No document at all is a valid "use defaults" configuration,
			// matching the teacher's tolerant Load behavior for an absent
			// repositories file.
			finalize(cfg, host)
			return &Loaded{Config: cfg, Host: host}, nil
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, fmt.Sprintf("reading config %s", path)).Fatal().Build()
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, fmt.Sprintf("parsing config %s", path)).Fatal().Build()
	}

	finalize(cfg, host)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &Loaded{Config: cfg, Host: host}, nil
}

func finalize(cfg *Config, host hostOverrides) {
	normalize(cfg)
	applyDefaults(cfg)
	host.apply(cfg)

	if cfg.Enabled {
		cfg.State = StateInitialized
	} else {
		cfg.State = StateDisabled
	}
}
