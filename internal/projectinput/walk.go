package projectinput

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/exclusion"
	"git.home.luguber.info/inful/reactorcache/internal/modelnorm"
)

// walkRoot is one resolved candidate to enumerate input files from.
type walkRoot struct {
	path      string
	glob      string
	recursive bool
}

// fileWalker enumerates the candidate input files for a project, honoring
// exclusions, hidden/unreadable skips, and the ancestor-of-base-dir
// non-recursive safeguard.
type fileWalker struct {
	project   *Project
	exclusion *exclusion.Resolver
	seen      map[string]struct{}
}

func newFileWalker(project *Project, excl *exclusion.Resolver) *fileWalker {
	return &fileWalker{project: project, exclusion: excl, seen: map[string]struct{}{}}
}

// collect enumerates every distinct input file across all candidate roots,
// returning project-relative paths sorted with a case-insensitive comparator.
func (w *fileWalker) collect(cfg *cacheconfig.Config) ([]string, error) {
	roots := w.candidateRoots(cfg)

	var files []string
	for _, root := range roots {
		abs, err := filepath.Abs(root.path)
		if err != nil {
			continue
		}
		abs = filepath.Clean(abs)

		key := abs + "|" + root.glob
		if _, dup := w.seen[key]; dup {
			continue
		}
		w.seen[key] = struct{}{}

		info, err := os.Stat(abs)
		if err != nil || isHidden(abs) {
			continue // nonexistent or hidden walk roots are silently skipped
		}
		if w.exclusion != nil && w.exclusion.Excludes(abs, info.IsDir()) {
			continue
		}

		recursive := root.recursive
		if isAncestor(abs, w.project.BaseDir) {
			// The walk root contains the whole project: force non-recursive
			// so a plugin-config path like ".." never walks the repo.
			recursive = false
		}

		if !info.IsDir() {
			if rel, ok := w.relativize(abs); ok {
				files = append(files, rel)
			}
			continue
		}

		found, err := w.walkDir(abs, root.glob, recursive)
		if err != nil {
			continue // I/O errors on a subtree are non-fatal: skip it
		}
		files = append(files, found...)
	}

	dedup := map[string]struct{}{}
	out := files[:0]
	for _, f := range files {
		if _, ok := dedup[f]; ok {
			continue
		}
		dedup[f] = struct{}{}
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out, nil
}

func (w *fileWalker) relativize(abs string) (string, bool) {
	rel, err := filepath.Rel(w.project.BaseDir, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *fileWalker) walkDir(dir, glob string, recursive bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(dir, name)

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if w.exclusion != nil && w.exclusion.Excludes(full, info.IsDir()) {
			continue
		}

		if info.IsDir() {
			if !recursive {
				continue
			}
			sub, err := w.walkDir(full, glob, recursive)
			if err != nil {
				continue
			}
			out = append(out, sub...)
			continue
		}

		if glob != "" {
			if ok, _ := filepath.Match(glob, name); !ok {
				continue
			}
		}
		if rel, ok := w.relativize(full); ok {
			out = append(out, rel)
		}
	}
	return out, nil
}

// candidateRoots enumerates every walk-root source named in spec step 3(a-c):
// the standard source/resource directories, project properties prefixed
// "input", and config-level global includes.
func (w *fileWalker) candidateRoots(cfg *cacheconfig.Config) []walkRoot {
	glob := cfg.DefaultGlob
	if g, ok := w.project.Properties["input.glob"]; ok && g != "" {
		glob = g
	}

	var roots []walkRoot
	addStd := func(dir string) {
		if dir == "" {
			return
		}
		roots = append(roots, walkRoot{path: filepath.Join(w.project.BaseDir, dir), glob: glob, recursive: true})
	}
	addStd(w.project.MainSourceDir)
	for _, d := range w.project.MainResourceDirs {
		addStd(d)
	}
	addStd(w.project.TestSourceDir)
	for _, d := range w.project.TestResourceDirs {
		addStd(d)
	}

	for key, value := range w.project.Properties {
		if !strings.HasPrefix(key, "input") || key == "input.glob" {
			continue
		}
		roots = append(roots, walkRoot{path: filepath.Join(w.project.BaseDir, value), glob: glob, recursive: true})
	}

	for _, inc := range cfg.Input.Global.Includes {
		g := inc.Glob
		if g == "" {
			g = glob
		}
		recursive := true
		if inc.Recursive != nil {
			recursive = *inc.Recursive
		}
		roots = append(roots, walkRoot{path: filepath.Join(w.project.BaseDir, inc.Value), glob: g, recursive: recursive})
	}

	if cfg.ProcessPlugins {
		roots = append(roots, w.pluginConfigRoots(cfg)...)
	}

	return roots
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isAncestor(ancestor, candidate string) bool {
	rel, err := filepath.Rel(ancestor, candidate)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// skipTextPrefixes and skipTextValues implement the heuristic in spec
// step 3(d): candidate text that looks like a coordinate, package root,
// environment placeholder, URL scheme, or OS temp dir is never a path.
var skipTextValues = map[string]struct{}{
	"true": {}, "false": {}, "utf-8": {}, "null": {}, `\`: {},
}

var skipTextPrefixes = []string{
	"com.", "org.", "io.", "java.", "javax.",
	"http:", "https:", "scm:", "ssh:", "git:", "svn:", "cp:", "classpath:",
	"${",
}

func looksLikePath(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if _, skip := skipTextValues[trimmed]; skip {
		return false
	}
	if strings.Contains(trimmed, "*") {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, p := range skipTextPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	if idx := strings.Index(trimmed, ":"); idx >= 0 && !strings.Contains(trimmed, `:\`) {
		// looks like an artifact coordinate groupId:artifactId[:...]
		return false
	}
	if strings.HasPrefix(trimmed, os.TempDir()) {
		return false
	}
	return true
}

// pluginConfigRoots walks every build plugin's configuration tree (and each
// execution's configuration) for candidate input paths, per spec step 3(d).
func (w *fileWalker) pluginConfigRoots(cfg *cacheconfig.Config) []walkRoot {
	var roots []walkRoot
	for _, plugin := range w.project.BuildPlugins {
		scan := pluginDirScan(cfg, plugin.ArtifactID)
		if scan.Mode == cacheconfig.DirScanOff {
			continue
		}

		collectFromTree(plugin.Configuration, scan, &roots, glob(cfg, w.project))
		for _, exec := range plugin.Executions {
			collectFromTree(exec.Configuration, scan, &roots, glob(cfg, w.project))
		}
	}
	return roots
}

func glob(cfg *cacheconfig.Config, p *Project) string {
	if g, ok := p.Properties["input.glob"]; ok && g != "" {
		return g
	}
	return cfg.DefaultGlob
}

func pluginDirScan(cfg *cacheconfig.Config, artifactID string) cacheconfig.DirScanConfig {
	for _, p := range cfg.Input.Plugins {
		if p.ArtifactID == artifactID {
			return p.DirScan
		}
	}
	return cacheconfig.DirScanConfig{Mode: cacheconfig.DirScanAuto}
}

func collectFromTree(n *modelnorm.Node, scan cacheconfig.DirScanConfig, roots *[]walkRoot, defaultGlob string) {
	if n == nil {
		return
	}

	if scan.Mode == cacheconfig.DirScanCustom && !tagConfigured(scan, n.Name) {
		// custom mode still recurses into children looking for configured tags
		for _, c := range n.Children {
			collectFromTree(c, scan, roots, defaultGlob)
		}
		return
	}

	g := defaultGlob
	recursive := true
	if scan.Mode == cacheconfig.DirScanCustom {
		if tc, ok := findTagConfig(scan, n.Name); ok {
			if tc.Glob != "" {
				g = tc.Glob
			}
			recursive = tc.Recursive
		}
	}

	if v, ok := n.Attr("cache.input"); ok && v == "true" {
		*roots = append(*roots, walkRoot{path: n.Text, glob: g, recursive: recursive})
	} else if looksLikePath(n.Text) {
		*roots = append(*roots, walkRoot{path: n.Text, glob: g, recursive: recursive})
	}

	if n.Name == "descriptorRef" && n.Text != "" {
		*roots = append(*roots, walkRoot{path: n.Text + ".xml", glob: g, recursive: false})
	}

	for _, c := range n.Children {
		collectFromTree(c, scan, roots, defaultGlob)
	}
}

func tagConfigured(scan cacheconfig.DirScanConfig, tagName string) bool {
	_, ok := findTagConfig(scan, tagName)
	return ok
}

func findTagConfig(scan cacheconfig.DirScanConfig, tagName string) (cacheconfig.TagScanConfig, bool) {
	for _, tc := range scan.TagScanConfigs {
		if tc.TagName == tagName {
			return tc, true
		}
	}
	return cacheconfig.TagScanConfig{}, false
}
