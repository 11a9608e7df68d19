package domain_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"
)

func metadata(t *testing.T, err error) map[string]any {
	t.Helper()
	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr), "expected *zerr.Error, got %T", err)
	return zErr.Metadata()
}

func TestGraph_AddTask(t *testing.T) {
	g := domain.NewGraph()
	task := domain.Task{Name: "styles"}

	require.NoError(t, g.AddTask(&task))

	err := g.AddTask(&task)
	require.Error(t, err)
	assert.Equal(t, "styles", metadata(t, err)["task_name"])

	require.ErrorIs(t, g.AddTask(&domain.Task{}), domain.ErrInvalidTaskName)
}

func TestGraph_Validate_Cycle(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(&domain.Task{Name: "a", Dependencies: []string{"b"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "b", Dependencies: []string{"a"}}))

	err := g.Validate()
	require.Error(t, err)
	assert.Equal(t, "a -> b -> a", metadata(t, err)["cycle"])
}

func TestGraph_Validate_MissingDependency(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(&domain.Task{Name: "html", Dependencies: []string{"styles"}}))

	err := g.Validate()
	require.Error(t, err)
	meta := metadata(t, err)
	assert.Equal(t, "styles", meta["dependency"])
	assert.Equal(t, "html", meta["required_by"])
}

func TestGraph_Walk(t *testing.T) {
	g := domain.NewGraph()
	require.NoError(t, g.AddTask(&domain.Task{Name: "build", Dependencies: []string{"html", "images"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "html", Dependencies: []string{"styles"}}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "styles"}))
	require.NoError(t, g.AddTask(&domain.Task{Name: "images"}))
	require.NoError(t, g.Validate())

	var order []string
	for task := range g.Walk() {
		order = append(order, task.Name)
	}
	assert.Equal(t, []string{"styles", "html", "images", "build"}, order)

	pos := func(name string) int { return slices.Index(order, name) }
	assert.Less(t, pos("styles"), pos("html"))
	assert.Less(t, pos("html"), pos("build"))

	assert.Equal(t, []string{"build"}, g.Dependents("html"))
	assert.Equal(t, []string{"build", "html", "images", "styles"}, g.Names())
	assert.Equal(t, 4, g.TaskCount())
}
