package cachereport

import (
	"fmt"

	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// BaselineTransport is the narrow seam onto C8 needed to fetch a previous
// session's cache-report.xml for comparison.
type BaselineTransport interface {
	Get(url string) ([]byte, error)
}

// BaselineURL builds the bit-exact cache-report.xml URL for a build (spec
// §6): "<baseUrl>/<cacheImplVersion>/<groupId>/<artifactId>/<buildId>/cache-report.xml".
func BaselineURL(baseURL, cacheImplVersion, groupID, artifactID, buildID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/cache-report.xml", baseURL, cacheImplVersion, groupID, artifactID, buildID)
}

// FetchBaseline retrieves and parses a baseline report over transport. A nil
// report with no error means the baseline doesn't exist (empty body).
func FetchBaseline(transport BaselineTransport, url string) (*Report, error) {
	data, err := transport.Get(url)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return Unmarshal(data)
}

// ItemStatus classifies one DigestItem against the baseline item at the same
// (kind, value) key.
type ItemStatus string

const (
	ItemMatched   ItemStatus = "MATCHED"
	ItemOutOfDate ItemStatus = "OUT OF DATE"
)

// ItemDiff is one current DigestItem's classification against the baseline.
type ItemDiff struct {
	Kind   projectinput.DigestKind
	Value  string
	Status ItemStatus
}

// CategorySummary aggregates ItemDiff counts for one of the spec's four
// reporting categories: source, dependencies, pluginDependencies,
// effective-pom.
type CategorySummary struct {
	Category  string
	Matched   int
	OutOfDate int
}

// categoryOrder fixes the emission order for CategorySummary lines.
var categoryOrder = []string{"source", "dependencies", "pluginDependencies", "effective-pom"}

func categoryFor(kind projectinput.DigestKind) string {
	switch kind {
	case projectinput.DigestPom:
		return "effective-pom"
	case projectinput.DigestDependency:
		return "dependencies"
	case projectinput.DigestPluginDependency:
		return "pluginDependencies"
	default: // DigestVersion, DigestFile
		return "source"
	}
}

// Diff is one project's change relative to a baseline report.
type Diff struct {
	GroupID    string
	ArtifactID string
	Baseline   ProjectReport
	Current    ProjectReport
	Items      []ItemDiff
	Categories []CategorySummary
}

// DiffAgainstBaseline reports every project whose fingerprint or source
// differs between the baseline and the current session's report, plus any
// project present in current but absent from baseline. For each such
// project, every current DigestItem whose (kind, value) matches a baseline
// item is classified MATCHED or OUT OF DATE by comparing hashes, and the
// per-item results are rolled up into one CategorySummary per reporting
// category (spec §5: source/dependencies/pluginDependencies/effective-pom).
func (r *Report) DiffAgainstBaseline(baseline *Report) []Diff {
	if baseline == nil {
		return nil
	}

	var diffs []Diff
	for _, current := range r.Projects() {
		base, ok := baseline.Find(current.GroupID, current.ArtifactID)
		if !ok || base.Fingerprint != current.Fingerprint || base.Source != current.Source {
			items, categories := diffItems(base.Items, current.Items)
			diffs = append(diffs, Diff{
				GroupID:    current.GroupID,
				ArtifactID: current.ArtifactID,
				Baseline:   base,
				Current:    current,
				Items:      items,
				Categories: categories,
			})
		}
	}
	return diffs
}

// diffItems classifies each current DigestItem against the baseline set
// keyed by (kind, value), then aggregates per reporting category.
func diffItems(baselineItems, currentItems []projectinput.DigestItem) ([]ItemDiff, []CategorySummary) {
	baselineByKey := make(map[string]projectinput.DigestItem, len(baselineItems))
	for _, item := range baselineItems {
		baselineByKey[string(item.Kind)+"\x00"+item.Value] = item
	}

	summaries := make(map[string]*CategorySummary, len(categoryOrder))
	var items []ItemDiff
	for _, current := range currentItems {
		status := ItemOutOfDate
		if base, ok := baselineByKey[string(current.Kind)+"\x00"+current.Value]; ok && base.Hash == current.Hash {
			status = ItemMatched
		}
		items = append(items, ItemDiff{Kind: current.Kind, Value: current.Value, Status: status})

		cat := categoryFor(current.Kind)
		summary, ok := summaries[cat]
		if !ok {
			summary = &CategorySummary{Category: cat}
			summaries[cat] = summary
		}
		if status == ItemMatched {
			summary.Matched++
		} else {
			summary.OutOfDate++
		}
	}

	var categories []CategorySummary
	for _, cat := range categoryOrder {
		if summary, ok := summaries[cat]; ok {
			categories = append(categories, *summary)
		}
	}
	return items, categories
}
