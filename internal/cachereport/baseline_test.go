package cachereport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

type fakeBaselineTransport struct {
	bodies map[string][]byte
}

func (f fakeBaselineTransport) Get(url string) ([]byte, error) {
	return f.bodies[url], nil
}

func TestBaselineURL_MatchesTemplate(t *testing.T) {
	url := BaselineURL("https://cache.example", "v1", "com.example", "demo", "42")
	assert.Equal(t, "https://cache.example/v1/com.example/demo/42/cache-report.xml", url)
}

func TestFetchBaseline_AbsentReturnsNilNoError(t *testing.T) {
	transport := fakeBaselineTransport{bodies: map[string][]byte{}}

	report, err := FetchBaseline(transport, "https://cache.example/v1/com.example/demo/42/cache-report.xml")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestFetchBaseline_ParsesBody(t *testing.T) {
	baseline := New()
	baseline.Add(ProjectReport{GroupID: "com.example", ArtifactID: "demo", Fingerprint: "abc", Source: SourceLocal})
	data, err := Marshal(baseline)
	require.NoError(t, err)

	url := "https://cache.example/v1/com.example/demo/42/cache-report.xml"
	transport := fakeBaselineTransport{bodies: map[string][]byte{url: data}}

	report, err := FetchBaseline(transport, url)
	require.NoError(t, err)
	found, ok := report.Find("com.example", "demo")
	assert.True(t, ok)
	assert.Equal(t, "abc", found.Fingerprint)
}

func TestDiffAgainstBaseline_DetectsFingerprintAndSourceChanges(t *testing.T) {
	baseline := New()
	baseline.Add(ProjectReport{GroupID: "com.example", ArtifactID: "demo", Fingerprint: "abc", Source: SourceLocal})
	baseline.Add(ProjectReport{GroupID: "com.example", ArtifactID: "unchanged", Fingerprint: "same", Source: SourceLocal})

	current := New()
	current.Add(ProjectReport{GroupID: "com.example", ArtifactID: "demo", Fingerprint: "changed", Source: SourceBuilt})
	current.Add(ProjectReport{GroupID: "com.example", ArtifactID: "unchanged", Fingerprint: "same", Source: SourceLocal})
	current.Add(ProjectReport{GroupID: "com.example", ArtifactID: "new-module", Fingerprint: "xyz", Source: SourceBuilt})

	diffs := current.DiffAgainstBaseline(baseline)

	require.Len(t, diffs, 2)
	artifactIDs := []string{diffs[0].ArtifactID, diffs[1].ArtifactID}
	assert.Contains(t, artifactIDs, "demo")
	assert.Contains(t, artifactIDs, "new-module")
}

func TestDiffAgainstBaseline_ClassifiesItemsAndAggregatesByCategory(t *testing.T) {
	baseline := New()
	baseline.Add(ProjectReport{
		GroupID: "com.example", ArtifactID: "demo", Fingerprint: "abc", Source: SourceLocal,
		Items: []projectinput.DigestItem{
			{Kind: projectinput.DigestPom, Value: "effective-pom", Hash: "pom-hash"},
			{Kind: projectinput.DigestFile, Value: "Foo.java", Hash: "foo-hash"},
			{Kind: projectinput.DigestFile, Value: "Bar.java", Hash: "bar-hash"},
			{Kind: projectinput.DigestDependency, Value: "com.example:sibling", Hash: "dep-hash"},
		},
	})

	current := New()
	current.Add(ProjectReport{
		GroupID: "com.example", ArtifactID: "demo", Fingerprint: "changed", Source: SourceBuilt,
		Items: []projectinput.DigestItem{
			{Kind: projectinput.DigestPom, Value: "effective-pom", Hash: "pom-hash"},       // matches
			{Kind: projectinput.DigestFile, Value: "Foo.java", Hash: "foo-hash-changed"}, // out of date
			{Kind: projectinput.DigestFile, Value: "Bar.java", Hash: "bar-hash"},           // matches
			{Kind: projectinput.DigestDependency, Value: "com.example:sibling", Hash: "dep-hash-changed"}, // out of date
		},
	})

	diffs := current.DiffAgainstBaseline(baseline)
	require.Len(t, diffs, 1)
	diff := diffs[0]

	require.Len(t, diff.Items, 4)
	byValue := map[string]ItemStatus{}
	for _, item := range diff.Items {
		byValue[item.Value] = item.Status
	}
	assert.Equal(t, ItemMatched, byValue["effective-pom"])
	assert.Equal(t, ItemOutOfDate, byValue["Foo.java"])
	assert.Equal(t, ItemMatched, byValue["Bar.java"])
	assert.Equal(t, ItemOutOfDate, byValue["com.example:sibling"])

	byCategory := map[string]CategorySummary{}
	for _, cat := range diff.Categories {
		byCategory[cat.Category] = cat
	}
	assert.Equal(t, CategorySummary{Category: "effective-pom", Matched: 1, OutOfDate: 0}, byCategory["effective-pom"])
	assert.Equal(t, CategorySummary{Category: "source", Matched: 1, OutOfDate: 1}, byCategory["source"])
	assert.Equal(t, CategorySummary{Category: "dependencies", Matched: 0, OutOfDate: 1}, byCategory["dependencies"])
}

func TestDiffAgainstBaseline_ItemAbsentFromBaselineIsOutOfDate(t *testing.T) {
	baseline := New()
	baseline.Add(ProjectReport{GroupID: "com.example", ArtifactID: "demo", Fingerprint: "abc", Source: SourceLocal})

	current := New()
	current.Add(ProjectReport{
		GroupID: "com.example", ArtifactID: "demo", Fingerprint: "changed", Source: SourceBuilt,
		Items: []projectinput.DigestItem{
			{Kind: projectinput.DigestFile, Value: "New.java", Hash: "new-hash"},
		},
	})

	diffs := current.DiffAgainstBaseline(baseline)
	require.Len(t, diffs, 1)
	require.Len(t, diffs[0].Items, 1)
	assert.Equal(t, ItemOutOfDate, diffs[0].Items[0].Status)
}

func TestDiffAgainstBaseline_NilBaselineYieldsNoDiffs(t *testing.T) {
	current := New()
	current.Add(ProjectReport{GroupID: "com.example", ArtifactID: "demo"})

	assert.Nil(t, current.DiffAgainstBaseline(nil))
}
