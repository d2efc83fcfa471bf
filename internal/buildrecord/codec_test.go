package buildrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

func sampleRecord() *BuildRecord {
	return &BuildRecord{
		CacheImplVersion: CacheImplVersion,
		Coordinates:      Coordinates{GroupID: "com.example", ArtifactID: "demo", Version: "1.0.0"},
		Checksum:         "abc123",
		Input: &projectinput.ProjectsInputInfo{
			ProjectKey: "com.example:demo",
			Checksum:   hashkit.Fingerprint("abc123"),
			Items: []projectinput.DigestItem{
				{Kind: projectinput.DigestPom, Value: "effective-pom", Hash: hashkit.Fingerprint("deadbeef")},
				{Kind: projectinput.DigestFile, Value: "src/Main.java", Hash: hashkit.Fingerprint("cafef00d")},
			},
		},
		Primary:  &ArtifactEntry{FileName: "demo-1.0.0.jar"},
		Attached: []ArtifactEntry{{FileName: "demo-1.0.0-sources.jar"}},
		CompletedExecutions: []CompletedExecution{
			{StepID: "compile", Properties: []TrackedProperty{{Name: "source", Value: "17", Tracked: true}}},
		},
		HighestCompletedPhase: "package",
		Final:                 true,
	}
}

func TestMarshalUnmarshal_RoundTrips(t *testing.T) {
	record := sampleRecord()

	data, err := Marshal(record)
	require.NoError(t, err)

	parsed, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, record.Coordinates, parsed.Coordinates)
	assert.Equal(t, record.Final, parsed.Final)
	assert.Equal(t, record.HighestCompletedPhase, parsed.HighestCompletedPhase)
	assert.Equal(t, record.Primary.FileName, parsed.Primary.FileName)
	require.Len(t, parsed.Attached, 1)
	assert.Equal(t, record.Attached[0].FileName, parsed.Attached[0].FileName)
	require.Len(t, parsed.Input.Items, 2)
	assert.Equal(t, record.Input.Items[0], parsed.Input.Items[0])
	require.Len(t, parsed.CompletedExecutions, 1)
	assert.Equal(t, record.CompletedExecutions[0], parsed.CompletedExecutions[0])
}

func TestMarshal_PreservesItemOrder(t *testing.T) {
	record := sampleRecord()

	data, err := Marshal(record)
	require.NoError(t, err)
	parsed, err := Unmarshal(data)
	require.NoError(t, err)

	require.Len(t, parsed.Input.Items, len(record.Input.Items))
	for i, item := range record.Input.Items {
		assert.Equal(t, item.Kind, parsed.Input.Items[i].Kind)
		assert.Equal(t, item.Value, parsed.Input.Items[i].Value)
	}
}
