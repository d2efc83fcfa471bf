package projectinput

import (
	"sort"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/reactorcache/internal/hashkit"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
)

// Reactor resolves a dependency's coordinate to a sibling project whose
// checksum has already been (recursively) computed by the calculator.
type Reactor interface {
	// ReactorChecksum returns the checksum for the reactor project matching
	// groupID:artifactID, or ok=false if no such project is in this reactor.
	ReactorChecksum(groupID, artifactID string) (checksum hashkit.Fingerprint, ok bool, err error)
}

// ArtifactResolver resolves a non-reactor snapshot dependency to a local
// file path, using the project's configured remote repositories.
type ArtifactResolver interface {
	ResolveArtifact(dep Dependency) (path string, err error)
}

// dependencyDigests computes ordered, deduplicated DigestItems for a
// project's own dependencies, per spec step 5.
func dependencyDigests(deps []Dependency, reactor Reactor, resolver ArtifactResolver, algo hashkit.Algorithm) ([]DigestItem, error) {
	type keyed struct {
		key  string
		item DigestItem
	}
	seen := map[string]struct{}{}
	var items []keyed

	for _, dep := range deps {
		if dep.PomOnly {
			continue
		}
		key := dep.Key()
		if _, dup := seen[key]; dup {
			continue
		}

		item, include, err := resolveDependencyDigest(dep, reactor, resolver, algo)
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, keyed{key: key, item: item})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })

	out := make([]DigestItem, len(items))
	for i, k := range items {
		out[i] = k.item
	}
	return out, nil
}

func resolveDependencyDigest(dep Dependency, reactor Reactor, resolver ArtifactResolver, algo hashkit.Algorithm) (DigestItem, bool, error) {
	if checksum, ok, err := reactorChecksum(dep, reactor); err != nil {
		return DigestItem{}, false, err
	} else if ok {
		return DigestItem{Kind: DigestDependency, Value: dep.Key(), Hash: checksum}, true, nil
	}

	if isDynamicVersion(dep.Version) {
		// Not resolvable to a reactor project: dynamic markers are skipped.
		return DigestItem{}, false, nil
	}

	if dep.Scope == "system" {
		if dep.SystemPath == "" {
			return DigestItem{}, false, nil
		}
		h, err := algo.HashFile(dep.SystemPath)
		if err != nil {
			return DigestItem{}, false, ferrors.WrapError(err, ferrors.CategoryDependencyUnresolved, "hashing system-scope dependency "+dep.Key()).Fatal().Build()
		}
		return DigestItem{Kind: DigestDependency, Value: dep.Key(), Hash: h}, true, nil
	}

	if dep.Snapshot {
		if resolver == nil {
			return DigestItem{}, false, ferrors.DependencyUnresolvedError("no artifact resolver configured for snapshot " + dep.Key()).Build()
		}
		path, err := resolver.ResolveArtifact(dep)
		if err != nil {
			return DigestItem{}, false, ferrors.WrapError(err, ferrors.CategoryDependencyUnresolved, "resolving snapshot "+dep.Key()).Fatal().Build()
		}
		h, err := algo.HashFile(path)
		if err != nil {
			return DigestItem{}, false, ferrors.WrapError(err, ferrors.CategoryDependencyUnresolved, "hashing resolved snapshot "+dep.Key()).Fatal().Build()
		}
		return DigestItem{Kind: DigestDependency, Value: dep.Key(), Hash: h}, true, nil
	}

	// Non-snapshot external release: treated as immutable, skipped.
	return DigestItem{}, false, nil
}

func reactorChecksum(dep Dependency, reactor Reactor) (hashkit.Fingerprint, bool, error) {
	if reactor == nil {
		return "", false, nil
	}
	return reactor.ReactorChecksum(dep.GroupID, dep.ArtifactID)
}

func isDynamicVersion(version string) bool {
	switch strings.ToUpper(strings.TrimSpace(version)) {
	case "LATEST", "RELEASE":
		return true
	default:
		return false
	}
}

// pluginDependencyDigests computes step 6's ordered digests: for each
// non-excluded build plugin, its own dependency digests prefixed by the
// plugin's coordinate and occurrence index.
func pluginDependencyDigests(plugins []Plugin, reactor Reactor, resolver ArtifactResolver, algo hashkit.Algorithm) ([]DigestItem, error) {
	type keyed struct {
		key  string
		item DigestItem
	}
	var all []keyed

	for _, plugin := range plugins {
		if plugin.ExcludeDependencies {
			continue
		}
		prefix := plugin.Key() + "|" + strconv.Itoa(plugin.Occurrence) + "|"

		digests, err := dependencyDigests(plugin.Dependencies, reactor, resolver, algo)
		if err != nil {
			return nil, err
		}
		for _, d := range digests {
			key := prefix + d.Value
			all = append(all, keyed{key: key, item: DigestItem{Kind: DigestPluginDependency, Value: key, Hash: d.Hash}})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })

	out := make([]DigestItem, len(all))
	for i, k := range all {
		out[i] = k.item
	}
	return out, nil
}
