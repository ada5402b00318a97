package entity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-hulk/pathtemplate/pkg/template"
)

const versionYAML = `
type: AssetVersion
id: v1
attributes:
  version: 7
  comment: first pass
relations:
  asset:
    type: Asset
    id: a1
    attributes: {name: Crate}
  task:
    type: Task
    attributes: {name: model}
links:
  - type: Project
    attributes: {name: film}
  - type: Sequence
    attributes: {name: sq010}
`

func TestLoadYAML(t *testing.T) {
	node, err := LoadYAML(strings.NewReader(versionYAML))
	require.NoError(t, err)
	require.Equal(t, "AssetVersion", node.Type())
	require.Equal(t, "v1", node.ID())

	version, ok := node.Attribute("version")
	require.True(t, ok)
	require.Equal(t, 7, version)

	asset, ok := node.Related("asset")
	require.True(t, ok)
	require.Equal(t, "a1", asset.ID())

	_, ok = node.Related("missing")
	require.False(t, ok)
	require.Len(t, node.Links(), 2)

	data, err := NewHarvester().Harvest(context.Background(), node, []string{
		"#assetversion.version", "#asset.name", "#task.name", "#project.name", "#sequence.name",
	})
	require.NoError(t, err)
	require.Equal(t, template.Data{
		"#assetversion": map[string]any{"version": "007"},
		"#asset":        map[string]any{"name": "Crate"},
		"#task":         map[string]any{"name": "model"},
		"#project":      map[string]any{"name": "film"},
		"#sequence":     map[string]any{"name": "sq010"},
	}, data)
}

func TestLoadYAML_Invalid(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("type: [unterminated"))
	require.Error(t, err)

	_, err = LoadYAML(strings.NewReader("attributes: {name: x}"))
	require.ErrorContains(t, err, "'type' is required")

	_, err = LoadYAML(strings.NewReader("type: Asset\nrelations:\n  parent:\n    id: s1\n"))
	require.ErrorContains(t, err, `relation "parent"`)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.yaml")
	require.NoError(t, os.WriteFile(path, []byte(versionYAML), 0o600))

	node, err := LoadYAMLFile(path)
	require.NoError(t, err)
	require.Equal(t, "AssetVersion", node.Type())

	_, err = LoadYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNode_NilRelation(t *testing.T) {
	node := &Node{Kind: "Asset", Relations: map[string]*Node{"parent": nil}}
	_, ok := node.Related("parent")
	require.False(t, ok)
	require.Empty(t, (&Node{Kind: "Asset", Ancestors: []*Node{nil}}).Links())
}
