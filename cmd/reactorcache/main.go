// Command reactorcache is an operator-facing tool over the build-cache
// engine: inspecting and restoring local cache entries, reading and diffing
// session cache reports, sweeping old entries, and standalone fingerprint/
// resolve diagnostics outside of a real build. During an actual build, the
// host build tool links this module as a library and drives
// cachecontrol.Controller/execstrategy.Strategy directly; this binary never
// runs one.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/reactorcache/internal/buildrecord"
	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/cachecontrol"
	"git.home.luguber.info/inful/reactorcache/internal/cachereport"
	"git.home.luguber.info/inful/reactorcache/internal/exclusion"
	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/modelnorm"
	"git.home.luguber.info/inful/reactorcache/internal/projectcalc"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
	"git.home.luguber.info/inful/reactorcache/internal/remotestore"
	"git.home.luguber.info/inful/reactorcache/internal/version"
	"git.home.luguber.info/inful/reactorcache/internal/workspace"
)

// CLI is the root command definition and global flags.
type CLI struct {
	CacheDir string           `short:"d" help:"Local cache root directory." default:".cache/reactorcache"`
	Verbose  bool             `short:"v" help:"Enable verbose logging."`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit."`

	Inspect     InspectCmd     `cmd:"" help:"Print a cached build record."`
	Restore     RestoreCmd     `cmd:"" help:"Restore one cached artifact to a destination path."`
	Report      ReportCmd      `cmd:"" help:"Print or diff a cache-report.xml document."`
	GC          GCCmd          `cmd:"" help:"Evict local cache entries beyond the retention limit."`
	Fingerprint FingerprintCmd `cmd:"" help:"Compute a project's cache fingerprint standalone."`
	Resolve     ResolveCmd     `cmd:"" help:"Run the C9 hit/miss decision for one project against the local (and optionally remote) store."`
	Serve       ServeCmd       `cmd:"" help:"Run a small reference HTTP remote-store server."`
}

// Global is shared state handed to every subcommand.
type Global struct {
	Logger *slog.Logger
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func openLocalStore(root string, maxLocalBuildsCached int) (*buildrecord.LocalStore, error) {
	store, err := buildrecord.NewLocalStore(root, maxLocalBuildsCached)
	if err != nil {
		return nil, fmt.Errorf("open local cache at %s: %w", root, err)
	}
	return store, nil
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli,
		kong.Name("reactorcache"),
		kong.Description("Inspect, restore, and report on a module-graph build cache."),
		kong.Vars{"version": version.Version},
	)

	logger := slog.Default()
	errorAdapter := ferrors.NewCLIErrorAdapter(cli.Verbose, logger)
	globals := &Global{Logger: logger}

	if err := parser.Run(globals, cli); err != nil {
		errorAdapter.HandleError(err)
	}
}

// InspectCmd prints a single local build record.
type InspectCmd struct {
	GroupID     string `arg:"" help:"Project groupId."`
	ArtifactID  string `arg:"" help:"Project artifactId."`
	Fingerprint string `arg:"" help:"Cache fingerprint (checksum) to look up."`
}

func (cmd *InspectCmd) Run(_ *Global, root *CLI) error {
	store, err := openLocalStore(root.CacheDir, 0)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	coords := buildrecord.Coordinates{GroupID: cmd.GroupID, ArtifactID: cmd.ArtifactID}
	record, ok, err := store.FindLocal(coords, cmd.Fingerprint)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("no local record for %s@%s\n", coords.Key(), cmd.Fingerprint)
		return nil
	}

	fmt.Printf("coordinates:   %s\n", coords.Key())
	fmt.Printf("checksum:      %s\n", record.Checksum)
	fmt.Printf("final:         %v\n", record.Final)
	fmt.Printf("highest phase: %s\n", record.HighestCompletedPhase)
	if record.Primary != nil {
		fmt.Printf("primary:       %s\n", record.Primary.FileName)
	}
	for _, a := range record.Attached {
		fmt.Printf("attached:      %s\n", a.FileName)
	}
	for _, ce := range record.CompletedExecutions {
		fmt.Printf("execution:     %s (%d tracked properties)\n", ce.StepID, len(ce.Properties))
	}
	return nil
}

// RestoreCmd copies one cached artifact out of the local store.
type RestoreCmd struct {
	GroupID     string `arg:"" help:"Project groupId."`
	ArtifactID  string `arg:"" help:"Project artifactId."`
	Fingerprint string `arg:"" help:"Cache fingerprint to restore from."`
	FileName    string `arg:"" help:"Artifact file name within the record."`
	Dest        string `arg:"" help:"Destination path to write the restored artifact to."`
}

func (cmd *RestoreCmd) Run(_ *Global, root *CLI) error {
	store, err := openLocalStore(root.CacheDir, 0)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	coords := buildrecord.Coordinates{GroupID: cmd.GroupID, ArtifactID: cmd.ArtifactID}
	record, ok, err := store.FindLocal(coords, cmd.Fingerprint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no local record for %s@%s", coords.Key(), cmd.Fingerprint)
	}

	for _, entry := range record.Artifacts() {
		if entry.FileName != cmd.FileName {
			continue
		}

		ws := workspace.NewManager(os.TempDir())
		if err := ws.Create(); err != nil {
			return fmt.Errorf("create restore staging area: %w", err)
		}
		defer func() { _ = ws.Cleanup() }()

		staged := filepath.Join(ws.GetPath(), entry.FileName)
		if err := store.Materialize(record, entry, staged); err != nil {
			return fmt.Errorf("restore %s: %w", entry.FileName, err)
		}
		if err := moveFile(staged, cmd.Dest); err != nil {
			return fmt.Errorf("move restored artifact into place: %w", err)
		}

		fmt.Printf("restored %s to %s\n", entry.FileName, cmd.Dest)
		return nil
	}
	return fmt.Errorf("artifact %q not found in record for %s@%s", cmd.FileName, coords.Key(), cmd.Fingerprint)
}

// moveFile relocates src to dest, falling back to copy-then-remove when a
// plain rename fails (e.g. across filesystems, common for a Dest outside the
// cache's own temp root).
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	data, err := os.ReadFile(src) // #nosec G304 - src is our own staging path
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return err
	}
	return os.Remove(src)
}

// ReportCmd prints a cache-report.xml document and, when Baseline is set,
// diffs it against a baseline report fetched over HTTP.
type ReportCmd struct {
	Path     string `arg:"" help:"Path to a cache-report.xml document."`
	Baseline string `help:"Baseline cache-report.xml URL to diff against."`
}

func (cmd *ReportCmd) Run(_ *Global, _ *CLI) error {
	data, err := os.ReadFile(cmd.Path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	report, err := cachereport.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parse report: %w", err)
	}

	for _, p := range report.Projects() {
		fmt.Printf("%s:%s  %s  %s  %s\n", p.GroupID, p.ArtifactID, p.Fingerprint, p.Source, p.URL)
	}

	if cmd.Baseline == "" {
		return nil
	}

	transport := remotestore.New()
	baseline, err := cachereport.FetchBaseline(transport, cmd.Baseline)
	if err != nil {
		return fmt.Errorf("fetch baseline: %w", err)
	}
	if baseline == nil {
		fmt.Println("no baseline report found")
		return nil
	}

	diffs := report.DiffAgainstBaseline(baseline)
	if len(diffs) == 0 {
		fmt.Println("no differences from baseline")
		return nil
	}
	fmt.Println("differences from baseline:")
	for _, d := range diffs {
		fmt.Printf("  %s:%s  baseline=%s/%s  current=%s/%s\n",
			d.GroupID, d.ArtifactID, d.Baseline.Fingerprint, d.Baseline.Source, d.Current.Fingerprint, d.Current.Source)
	}
	return nil
}

// GCCmd sweeps every project tracked in the local index down to its
// retention limit.
type GCCmd struct {
	MaxLocalBuildsCached int `help:"Maximum cached builds to retain per project; older ones are evicted." default:"10"`
}

func (cmd *GCCmd) Run(_ *Global, root *CLI) error {
	store, err := openLocalStore(root.CacheDir, cmd.MaxLocalBuildsCached)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	coordinates, err := store.Coordinates()
	if err != nil {
		return fmt.Errorf("list tracked projects: %w", err)
	}

	for _, coords := range coordinates {
		store.Evict(coords)
	}
	fmt.Printf("swept %d project(s), keeping at most %d build(s) each\n", len(coordinates), cmd.MaxLocalBuildsCached)
	return nil
}

// buildStandaloneProject assembles a single-project projectinput.Project
// from CLI flags, for the fingerprint/resolve commands that run outside a
// host build tool's reactor graph. Such a project carries no Dependencies,
// so passing a nil Reactor/ArtifactResolver to projectinput.Compute is safe:
// those seams are only consulted when walking a dependency list.
func buildStandaloneProject(groupID, artifactID, version, baseDir, mainSourceDir string, pomOnly bool) *projectinput.Project {
	return &projectinput.Project{
		BaseDir:        baseDir,
		GroupID:        groupID,
		ArtifactID:     artifactID,
		Version:        version,
		PomOnly:        pomOnly,
		MainSourceDir:  mainSourceDir,
		EffectiveModel: &modelnorm.Node{Name: "project"},
	}
}

// FingerprintCmd computes and prints a project's cache fingerprint without
// going through a host build tool, for operators diagnosing why a project
// did or didn't hit.
type FingerprintCmd struct {
	Config        string `help:"Path to the build-cache config YAML." default:"cache-config.yaml"`
	GroupID       string `arg:"" help:"Project groupId."`
	ArtifactID    string `arg:"" help:"Project artifactId."`
	Version       string `arg:"" help:"Project version."`
	BaseDir       string `arg:"" help:"Project base directory." default:"."`
	MainSourceDir string `help:"Main source directory, relative to BaseDir." default:"src/main/java"`
	PomOnly       bool   `help:"Treat the project as pom-only (no file input walk)."`
}

func (cmd *FingerprintCmd) Run(_ *Global, _ *CLI) error {
	loaded, err := cacheconfig.Load(cmd.Config)
	if err != nil {
		return err
	}

	project := buildStandaloneProject(cmd.GroupID, cmd.ArtifactID, cmd.Version, cmd.BaseDir, cmd.MainSourceDir, cmd.PomOnly)
	excl := exclusion.New(project.BaseDir, loaded.Config, project.Properties)

	info, err := projectinput.Compute(project, loaded.Config, excl, nil, nil)
	if err != nil {
		return fmt.Errorf("compute fingerprint: %w", err)
	}

	fmt.Printf("%s  %d input item(s)\n", info.Checksum, len(info.Items))
	return nil
}

// ResolveCmd runs the C9 cache decision for one project standalone: the same
// local-then-remote lookup the host build tool's in-process Controller runs,
// exposed for operators who want to check a hit/miss without wiring up a
// full build.
type ResolveCmd struct {
	Config        string `help:"Path to the build-cache config YAML." default:"cache-config.yaml"`
	GroupID       string `arg:"" help:"Project groupId."`
	ArtifactID    string `arg:"" help:"Project artifactId."`
	Version       string `arg:"" help:"Project version."`
	BaseDir       string `arg:"" help:"Project base directory." default:"."`
	MainSourceDir string `help:"Main source directory, relative to BaseDir." default:"src/main/java"`
	PomOnly       bool   `help:"Treat the project as pom-only (no file input walk)."`
}

type singleProjectSource struct {
	project *projectinput.Project
}

func (s singleProjectSource) Project(groupID, artifactID string) (*projectinput.Project, bool) {
	if s.project.GroupID == groupID && s.project.ArtifactID == artifactID {
		return s.project, true
	}
	return nil, false
}

func (cmd *ResolveCmd) Run(_ *Global, root *CLI) error {
	loaded, err := cacheconfig.Load(cmd.Config)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	project := buildStandaloneProject(cmd.GroupID, cmd.ArtifactID, cmd.Version, cmd.BaseDir, cmd.MainSourceDir, cmd.PomOnly)
	calculator := projectcalc.New(cfg, singleProjectSource{project: project}, nil)

	local, err := openLocalStore(root.CacheDir, cfg.MaxLocalBuildsCached)
	if err != nil {
		return err
	}
	defer func() { _ = local.Close() }()

	if algo, algoErr := hashkit.AlgorithmByName(cfg.HashAlgorithm); algoErr == nil {
		local.WithHashAlgorithm(algo)
	}

	var remote *buildrecord.RemoteStore
	if cfg.Remote.Enabled && cfg.Remote.URL != "" {
		transport := remotestore.New()
		remote = buildrecord.NewRemoteStore(transport, cfg.Remote.URL)
		if algo, algoErr := hashkit.AlgorithmByName(cfg.HashAlgorithm); algoErr == nil {
			remote.WithHashAlgorithm(algo)
		}
	}
	store := buildrecord.NewStore(local, remote, cfg.Remote.SaveToRemote, cfg.Remote.SaveFinal, false)

	controller := cachecontrol.New(calculator, store, cfg.Remote.Enabled, nil)
	result, err := controller.Lookup(project, false)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", project.Key(), err)
	}

	switch result.Status {
	case cachecontrol.StatusHit:
		fmt.Printf("HIT   %s  fingerprint=%s  source=%s\n", project.Key(), result.Fingerprint, result.Source)
	case cachecontrol.StatusMiss:
		fmt.Printf("MISS  %s  fingerprint=%s\n", project.Key(), result.Fingerprint)
	}
	return nil
}

// ServeCmd runs the reference remote-cache HTTP server backing C8's
// transport contract, storing uploaded blobs under Root.
type ServeCmd struct {
	Addr string `help:"Listen address." default:":8080"`
	Root string `help:"Directory to store uploaded blobs under." default:".cache/reactorcache-remote"`
}

func (cmd *ServeCmd) Run(global *Global, _ *CLI) error {
	if err := os.MkdirAll(cmd.Root, 0o750); err != nil {
		return fmt.Errorf("create remote store root: %w", err)
	}

	srv := &remotestore.Server{Root: cmd.Root, Logger: global.Logger}
	global.Logger.Info("starting remote cache server", "addr", cmd.Addr, "root", cmd.Root)
	return http.ListenAndServe(cmd.Addr, srv.Handler()) //nolint:gosec // reference server, no production timeout policy to enforce
}
