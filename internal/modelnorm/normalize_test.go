package modelnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleModel(baseDir, osToken string) *Node {
	return &Node{
		Name: "project",
		Children: []*Node{
			{Name: "basedir", Text: baseDir + "/module-a"},
			{Name: "build", Children: []*Node{
				{Name: "directory", Text: baseDir + `\module-a\target`},
			}},
			{Name: "profile", Attrs: []Attr{{Name: "os", Value: osToken}}},
		},
	}
}

func TestNormalize_StripsAbsoluteBaseDir(t *testing.T) {
	norm := Normalize(sampleModel("/home/ci/repo", "linux"), "/home/ci/repo")
	assert.Equal(t, "/module-a", norm.Children[0].Text)
}

func TestNormalize_ConvertsWindowsSeparators(t *testing.T) {
	norm := Normalize(sampleModel("/home/ci/repo", "linux"), "/home/ci/repo")
	assert.Equal(t, "/module-a/target", norm.Children[1].Children[0].Text)
}

func TestNormalize_CollapsesPlatformTokens(t *testing.T) {
	linux := Normalize(sampleModel("/home/ci/repo", "linux"), "/home/ci/repo")
	windows := Normalize(sampleModel("/home/ci/repo", "windows"), "/home/ci/repo")

	linuxOS, _ := linux.Children[2].Attr("os")
	windowsOS, _ := windows.Children[2].Attr("os")
	assert.Equal(t, "os.classifier", linuxOS)
	assert.Equal(t, "os.classifier", windowsOS)
}

func TestCanonicalize_StableAcrossEquivalentInstances(t *testing.T) {
	a := Canonicalize(Normalize(sampleModel("/home/ci/repo", "linux"), "/home/ci/repo"))
	b := Canonicalize(Normalize(sampleModel("/home/ci/repo", "linux"), "/home/ci/repo"))
	assert.Equal(t, a, b)
}

func TestCanonicalize_DiffersOnDeclarationOrder(t *testing.T) {
	base := &Node{Name: "root", Children: []*Node{{Name: "a", Text: "1"}, {Name: "b", Text: "2"}}}
	reordered := &Node{Name: "root", Children: []*Node{{Name: "b", Text: "2"}, {Name: "a", Text: "1"}}}
	assert.NotEqual(t, Canonicalize(base), Canonicalize(reordered))
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	original := sampleModel("/home/ci/repo", "linux")
	_ = Normalize(original, "/home/ci/repo")
	assert.Equal(t, "/home/ci/repo/module-a", original.Children[0].Text)
}
