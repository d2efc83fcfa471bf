package projectinput

import (
	"path/filepath"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/exclusion"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/modelnorm"
)

// Compute runs the full C5 algorithm for a single project: effective-model
// digest, optional version digest, sorted input-file digests, dependency
// digests, and plugin-dependency digests, aggregated into one fingerprint.
//
// POM-only projects (Project.PomOnly) contribute no file inputs.
func Compute(project *Project, cfg *cacheconfig.Config, excl *exclusion.Resolver, reactor Reactor, resolver ArtifactResolver) (*ProjectsInputInfo, error) {
	algo, err := hashkit.AlgorithmByName(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	var items []DigestItem

	if cfg.CalculateProjectVersionChecksum {
		items = append(items, DigestItem{
			Kind:  DigestVersion,
			Value: project.Version,
			Hash:  algo.Hash([]byte(project.Version)),
		})
	}

	normalized := modelnorm.Normalize(project.EffectiveModel, project.BaseDir)
	pomDigest := algo.Hash([]byte(modelnorm.Canonicalize(normalized)))
	items = append(items, DigestItem{Kind: DigestPom, Value: "effective-pom", Hash: pomDigest})

	if !project.PomOnly {
		gitHash, useGitTree := hashkit.Fingerprint(""), false
		if cfg.UseGitTreeHash {
			gitHash, useGitTree = gitTreeDigest(project.BaseDir)
		}

		switch {
		case useGitTree:
			items = append(items, DigestItem{Kind: DigestFile, Value: "git-tree", Hash: gitHash})
		default:
			walker := newFileWalker(project, excl)
			files, err := walker.collect(cfg)
			if err != nil {
				return nil, err
			}
			for _, rel := range files {
				h, err := algo.HashFile(filepath.Join(project.BaseDir, rel))
				if err != nil {
					continue // I/O errors on individual files are non-fatal
				}
				items = append(items, DigestItem{Kind: DigestFile, Value: rel, Hash: h})
			}
		}
	}

	depDigests, err := dependencyDigests(project.Dependencies, reactor, resolver, algo)
	if err != nil {
		return nil, err
	}
	items = append(items, depDigests...)

	if cfg.ProcessPlugins {
		pluginDeps, err := pluginDependencyDigests(project.BuildPlugins, reactor, resolver, algo)
		if err != nil {
			return nil, err
		}
		items = append(items, pluginDeps...)
	}

	checksum, err := aggregate(items, cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	info := &ProjectsInputInfo{
		ProjectKey: project.Key(),
		Items:      items,
		Checksum:   checksum,
	}

	if cfg.ExperimentalSplitChecksum {
		splitChecksum, err := splitChecksum(items, cfg.HashAlgorithm)
		if err != nil {
			return nil, err
		}
		info.SplitChecksum = splitChecksum
	}

	return info, nil
}

// splitChecksum aggregates source-like items (version, effective POM, input
// files) and dependency-like items (reactor and plugin dependencies)
// separately, then combines the two resulting digests with
// mdfp.CalculateFingerprintFromParts. It is an experimental, diagnostic-only
// alternative view of a project's fingerprint: unlike Checksum it never
// gates a cache decision.
func splitChecksum(items []DigestItem, algorithmName string) (hashkit.Fingerprint, error) {
	var source, deps []DigestItem
	for _, item := range items {
		switch item.Kind {
		case DigestDependency, DigestPluginDependency:
			deps = append(deps, item)
		default:
			source = append(source, item)
		}
	}

	srcSum, err := aggregate(source, algorithmName)
	if err != nil {
		return "", err
	}
	depSum, err := aggregate(deps, algorithmName)
	if err != nil {
		return "", err
	}

	return hashkit.Fingerprint(mdfp.CalculateFingerprintFromParts(string(srcSum), string(depSum))), nil
}

// aggregate feeds every item's hash, in order, into a fresh Checksum.
func aggregate(items []DigestItem, algorithmName string) (hashkit.Fingerprint, error) {
	checksum, err := hashkit.NewChecksum(algorithmName, len(items)*64)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		checksum.Update([]byte(item.Hash))
	}
	return checksum.Digest(), nil
}
