package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-hulk/pathtemplate/pkg/template"
)

type fixture struct {
	project   *Node
	shot      *Node
	task      *Node
	asset     *Node
	version   *Node
	component *Node
}

func newFixture() *fixture {
	project := &Node{Kind: "Project", Key: "p1", Attributes: map[string]any{"name": "film", "code": "flm"}}
	shot := &Node{Kind: "Shot", Key: "s1", Attributes: map[string]any{"name": "sh010"}, Ancestors: []*Node{project}}
	task := &Node{Kind: "Task", Key: "t1", Attributes: map[string]any{"name": "comp"}, Ancestors: []*Node{project, shot}}
	asset := &Node{Kind: "Asset", Key: "a1", Attributes: map[string]any{"name": "Crate"}, Ancestors: []*Node{project, shot}}
	asset.Relate("parent", shot)
	version := &Node{
		Kind:       "AssetVersion",
		Key:        "v1",
		Attributes: map[string]any{"version": 7},
		Ancestors:  []*Node{project, shot, asset},
	}
	version.Relate("task", task).Relate("asset", asset)
	component := &Node{Kind: "Component", Key: "c1", Attributes: map[string]any{"name": "main", "size": int64(42)}}
	component.Relate("version", version)

	return &fixture{project: project, shot: shot, task: task, asset: asset, version: version, component: component}
}

func TestHarvester_Version(t *testing.T) {
	f := newFixture()
	data, err := NewHarvester().Harvest(context.Background(), f.version, []string{
		"#project.name",
		"#shot.name",
		"#asset.name",
		"#asset.parent.name",
		"#assetversion.version",
		"#task.name",
		"#missing.name",
		"#asset.unknown",
		"#asset.parent.unknown",
		"#asset",
		"plain",
	})
	require.NoError(t, err)
	require.Equal(t, template.Data{
		"#project":      map[string]any{"name": "film"},
		"#shot":         map[string]any{"name": "sh010"},
		"#asset":        map[string]any{"name": "Crate", "parent": map[string]any{"name": "sh010"}},
		"#assetversion": map[string]any{"version": "007"},
		"#task":         map[string]any{"name": "comp"},
	}, data)
}

func TestHarvester_DeepPathsMerge(t *testing.T) {
	f := newFixture()
	f.shot.Attributes["frame_start"] = 1001
	data, err := NewHarvester().Harvest(context.Background(), f.version, []string{
		"#asset.parent.name",
		"#asset.parent.frame_start",
	})
	require.NoError(t, err)
	require.Equal(t, template.Data{
		"#asset": map[string]any{"parent": map[string]any{"name": "sh010", "frame_start": "1001"}},
	}, data)
}

func TestHarvester_ComponentWithoutContainer(t *testing.T) {
	f := newFixture()
	data, err := NewHarvester().Harvest(context.Background(), f.component, []string{
		"#component.name",
		"#component.size",
		"#assetversion.version",
		"#asset.name",
		"#task.name",
		"#project.code",
		"#container.name",
	})
	require.NoError(t, err)
	require.Equal(t, template.Data{
		"#component":    map[string]any{"name": "main", "size": "042"},
		"#assetversion": map[string]any{"version": "007"},
		"#asset":        map[string]any{"name": "Crate"},
		"#task":         map[string]any{"name": "comp"},
		"#project":      map[string]any{"code": "flm"},
	}, data)
}

func TestHarvester_ComponentPrefersContainer(t *testing.T) {
	f := newFixture()
	other := &Node{Kind: "AssetVersion", Key: "v2", Attributes: map[string]any{"version": 12}}
	other.Relate("task", f.task).Relate("asset", f.asset)
	container := &Node{Kind: "ContainerComponent", Key: "c0", Attributes: map[string]any{"name": "sequence"}}
	container.Relate("version", other)
	f.component.Relate("container", container)

	data, err := NewHarvester().Harvest(context.Background(), f.component, []string{
		"#assetversion.version",
		"#container.name",
	})
	require.NoError(t, err)
	require.Equal(t, template.Data{
		"#assetversion": map[string]any{"version": "012"},
		"#container":    map[string]any{"name": "sequence"},
	}, data)
}

func TestHarvester_Options(t *testing.T) {
	f := newFixture()
	harvester := NewHarvester(
		WithPadding(4),
		WithRelations("AssetVersion", Relation{Namespace: "owner", Paths: []string{"asset.parent"}}),
	)
	data, err := harvester.Harvest(context.Background(), f.version, []string{
		"#assetversion.version",
		"#owner.name",
		"#task.name",
	})
	require.NoError(t, err)
	require.Equal(t, template.Data{
		"#assetversion": map[string]any{"version": "0007"},
		"#owner":        map[string]any{"name": "sh010"},
	}, data)
}

func TestHarvester_LinkSources(t *testing.T) {
	f := newFixture()
	harvester := NewHarvester(WithLinkSources("component"))
	data, err := harvester.Harvest(context.Background(), f.component, []string{"#project.name"})
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestHarvester_Context(t *testing.T) {
	f := newFixture()
	entities := NewHarvester().Context(f.version)
	require.Len(t, entities, 5)
	require.Same(t, f.project, entities["project"])
	require.Same(t, f.shot, entities["shot"])
	require.Same(t, f.asset, entities["asset"])
	require.Same(t, f.task, entities["task"])
	require.Same(t, f.version, entities["assetversion"])
}

func TestHarvester_NilEntityAndCancellation(t *testing.T) {
	data, err := NewHarvester().Harvest(context.Background(), nil, []string{"#asset.name"})
	require.NoError(t, err)
	require.Empty(t, data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewHarvester().Harvest(ctx, newFixture().version, []string{"#asset.name"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFollow(t *testing.T) {
	f := newFixture()
	e, ok := Follow(f.component, "version.asset.parent")
	require.True(t, ok)
	require.Same(t, f.shot, e)

	_, ok = Follow(f.component, "container.version")
	require.False(t, ok)
}
