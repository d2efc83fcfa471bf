package cacheconfig

import (
	"fmt"

	"git.home.luguber.info/inful/reactorcache/internal/foundation"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
)

// validate coordinates validation across the resolved config's domains,
// mirroring the teacher's per-domain validator split. The hash algorithm
// check is kept separate from the rest because it carries its own error
// category (CategoryHashAlgorithm, not CategoryValidation); the remote and
// retention checks share one FieldError-aggregating pass so a caller with
// more than one misconfigured field sees all of them at once, not just the
// first.
func validate(c *Config) error {
	if c.Enabled {
		if _, err := hashkit.AlgorithmByName(c.HashAlgorithm); err != nil {
			return ferrors.HashAlgorithmError(fmt.Sprintf("hashAlgorithm %q is not registered", c.HashAlgorithm)).Build()
		}
	}

	result := foundation.Valid()
	if c.Remote.Enabled && c.Remote.URL == "" {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError(
			"remote.url", "required", "remote.url is required when remote.enabled is true")))
	}
	if c.MaxLocalBuildsCached < 1 {
		result = result.Combine(foundation.Invalid(foundation.NewValidationError(
			"maxLocalBuildsCached", "min", "maxLocalBuildsCached must be at least 1")))
	}
	return result.ToError()
}
