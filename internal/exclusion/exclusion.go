// Package exclusion resolves whether a filesystem path is excluded from a
// project's input scan, combining the project's own build-output
// directories with operator-supplied property groups.
package exclusion

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/util/sets"
)

// MatcherType selects whether an Exclusion.Value is matched against a path's
// basename or its full (project-relative or absolute) form.
type MatcherType string

const (
	MatcherFilename MatcherType = "filename"
	MatcherPath     MatcherType = "path"
)

// EntryType restricts an Exclusion to files, directories, or both.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntryAny       EntryType = ""
)

// Exclusion is one resolved skip rule, grouped by its property key at
// construction time.
type Exclusion struct {
	Key         string
	Value       string
	Glob        string
	EntryType   EntryType
	MatcherType MatcherType

	// root is the ancestor directory this exclusion applies under; paths
	// outside it never match regardless of value/glob.
	root string
}

// Resolver answers whether an absolute path is excluded from a project's
// input scan. It is immutable after construction.
type Resolver struct {
	baseDir string

	direct sets.Set[string] // exact absolute file paths, fast-pathed

	fileRules []Exclusion
	dirRules  []Exclusion
}

// defaultBuildOutputDirs are auto-excluded regardless of configuration,
// matching the reactor's own build-output conventions.
var defaultBuildOutputDirs = []string{"target", "build", ".git", "node_modules"}

// New constructs a Resolver for a project. properties is the project's
// resolved property map; keys of the form
// "cache.exclude.{value|glob|entryType|matcherType}.<k>" are grouped into one
// Exclusion per <k>. cfg's `input.global.excludes` entries are added as
// filename/glob rules matched at any depth (spec scenario S5), on top of the
// property-supplied ones. Exclusion roots that don't exist on disk are
// dropped.
func New(baseDir string, cfg *cacheconfig.Config, properties map[string]string) *Resolver {
	baseDir = filepath.Clean(baseDir)
	r := &Resolver{baseDir: baseDir, direct: sets.New[string]()}

	grouped := groupExclusionProperties(properties)
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ex := grouped[k]
		ex.Key = k
		if ex.MatcherType == "" {
			ex.MatcherType = MatcherPath
		}
		r.addExclusion(ex)
	}

	if cfg != nil {
		for i, pm := range cfg.Input.Global.Excludes {
			r.addExclusion(configExclusion(i, pm))
		}
	}

	for _, name := range defaultBuildOutputDirs {
		r.addExclusion(Exclusion{
			Key:         "builtin:" + name,
			Value:       name,
			MatcherType: MatcherFilename,
			EntryType:   EntryDirectory,
		})
	}

	return r
}

// configExclusion maps a config-level PathMatcher to an Exclusion. Excludes
// are matched by filename/glob at any depth in the project tree (spec
// scenario S5): the pattern lives in Glob (a literal filename with no
// wildcard still matches exactly via filepath.Match), falling back to Value
// only if Glob was left blank.
func configExclusion(index int, pm cacheconfig.PathMatcher) Exclusion {
	pattern := pm.Glob
	if pattern == "" {
		pattern = pm.Value
	}
	return Exclusion{
		Key:         "config:" + strconv.Itoa(index),
		Value:       pattern,
		Glob:        pattern,
		MatcherType: MatcherFilename,
		EntryType:   configEntryType(pm.EntryKind),
	}
}

func configEntryType(kind cacheconfig.EntryKind) EntryType {
	switch kind {
	case cacheconfig.EntryFile:
		return EntryFile
	case cacheconfig.EntryDirectory:
		return EntryDirectory
	default:
		return EntryAny
	}
}

func groupExclusionProperties(properties map[string]string) map[string]Exclusion {
	out := map[string]Exclusion{}
	for key, value := range properties {
		const prefix = "cache.exclude."
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		parts := strings.SplitN(rest, ".", 2)
		if len(parts) != 2 {
			continue
		}
		field, k := parts[0], parts[1]
		ex := out[k]
		switch field {
		case "value":
			ex.Value = value
		case "glob":
			ex.Glob = value
		case "entryType":
			ex.EntryType = EntryType(value)
		case "matcherType":
			ex.MatcherType = MatcherType(value)
		default:
			continue
		}
		out[k] = ex
	}
	return out
}

func (r *Resolver) addExclusion(ex Exclusion) {
	if ex.Value == "" {
		return
	}

	if ex.MatcherType == MatcherFilename && ex.Glob == "" && !strings.ContainsAny(ex.Value, "/\\") {
		// A bare filename with no glob and no path component is a direct,
		// exact-match exclusion: fast-pathed without a directory walk.
		abs := ex.Value
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(r.baseDir, abs)
		}
		r.direct.Add(filepath.Clean(abs))
		return
	}

	ex.root = r.resolveRoot(ex)
	if ex.root == "" {
		return
	}
	if _, err := os.Stat(ex.root); err != nil {
		return
	}

	switch ex.EntryType {
	case EntryFile:
		r.fileRules = append(r.fileRules, ex)
	case EntryDirectory:
		r.dirRules = append(r.dirRules, ex)
	default:
		r.fileRules = append(r.fileRules, ex)
		r.dirRules = append(r.dirRules, ex)
	}
}

func (r *Resolver) resolveRoot(ex Exclusion) string {
	if ex.MatcherType == MatcherPath && filepath.IsAbs(ex.Value) {
		return filepath.Clean(ex.Value)
	}
	return r.baseDir
}

// Excludes reports whether absPath is excluded. isDir indicates whether the
// path denotes a directory (callers that haven't stat'd it yet may pass
// false for a file-scan context).
func (r *Resolver) Excludes(absPath string, isDir bool) bool {
	absPath = filepath.Clean(absPath)

	if r.direct.Has(absPath) {
		return true
	}

	rules := r.fileRules
	if isDir {
		rules = r.dirRules
	}

	for _, ex := range rules {
		if !isAncestor(ex.root, absPath) {
			continue
		}
		if matches(ex, absPath, r.baseDir) {
			return true
		}
	}
	return false
}

func matches(ex Exclusion, absPath, baseDir string) bool {
	switch ex.MatcherType {
	case MatcherFilename:
		name := filepath.Base(absPath)
		if ex.Glob != "" {
			ok, _ := filepath.Match(ex.Glob, name)
			return ok
		}
		return name == ex.Value
	default: // MatcherPath
		candidate := absPath
		if !filepath.IsAbs(ex.Value) {
			rel, err := filepath.Rel(baseDir, absPath)
			if err != nil {
				return false
			}
			candidate = rel
		}
		candidate = toForwardSlash(candidate)
		glob := ex.Glob
		if glob == "" {
			glob = ex.Value
		}
		glob = toForwardSlash(glob)
		ok, _ := pathGlobMatch(glob, candidate)
		return ok
	}
}

// pathGlobMatch supports "**" in addition to filepath.Match's single-segment
// wildcards, since path-style excludes commonly need to match any depth.
func pathGlobMatch(glob, candidate string) (bool, error) {
	if !strings.Contains(glob, "**") {
		return filepath.Match(glob, candidate)
	}
	pattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(glob), `\*\*`, ".*") + "$"
	pattern = strings.ReplaceAll(pattern, `\*`, "[^/]*")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(candidate), nil
}

func toForwardSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func isAncestor(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
