package subsystem_test

import (
	"testing"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/mycelia-dev/subsystem-kernel/graph"
	"github.com/mycelia-dev/subsystem-kernel/subsystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleHook(kind string, required ...string) facet.Hook {
	return facet.Hook{
		Kind:     kind,
		Required: required,
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			f, err := facet.New(kind)
			if err != nil {
				return nil, err
			}
			for _, dep := range required {
				if err := f.AddDependency(dep); err != nil {
					return nil, err
				}
			}
			return f, nil
		},
	}
}

func TestBuilder_PlanOrdersDependenciesBeforeDependents(t *testing.T) {
	s := subsystem.New("root", map[string]any{})
	s.Hooks = []facet.Hook{
		simpleHook("processor", "router", "queue"),
		simpleHook("router"),
		simpleHook("queue"),
	}

	plan, err := s.Plan(nil)
	require.NoError(t, err)

	pos := map[string]int{}
	for i, k := range plan.OrderedKinds {
		pos[k] = i
	}
	assert.Less(t, pos["router"], pos["processor"])
	assert.Less(t, pos["queue"], pos["processor"])
}

func TestBuilder_PlanDetectsCycle(t *testing.T) {
	s := subsystem.New("root", nil)
	s.Hooks = []facet.Hook{simpleHook("a", "b"), simpleHook("b", "a")}

	_, err := s.Plan(nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.CycleDetected))
	assert.Nil(t, s.GetPlan())
}

func TestBuilder_PlanMissingDependency(t *testing.T) {
	s := subsystem.New("root", nil)
	s.Hooks = []facet.Hook{simpleHook("processor", "router")}

	_, err := s.Plan(nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.MissingDependency))
}

func TestBuilder_BuildRollsBackOnInitFailure(t *testing.T) {
	s := subsystem.New("root", nil)
	disposedF1, disposedF2 := false, false

	s.Hooks = []facet.Hook{
		{Kind: "f1", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
			f, _ := facet.New("f1")
			_ = f.OnDispose(func() { disposedF1 = true })
			return f, nil
		}},
		{Kind: "f2", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
			f, _ := facet.New("f2")
			_ = f.OnDispose(func() { disposedF2 = true })
			_ = f.OnInit(func(facet.InitArgs) error {
				return errs.New(errs.InvalidArgument, "boom")
			})
			return f, nil
		}},
	}

	_, err := s.Build(nil)
	require.Error(t, err)
	assert.Equal(t, 0, s.Manager.Size())
	assert.True(t, disposedF1)
	assert.True(t, disposedF2)
}

func TestBuilder_ContractViolationOnProcessor(t *testing.T) {
	s := subsystem.New("root", nil)
	s.Hooks = []facet.Hook{
		{Kind: "processor", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
			return facet.New("processor")
		}},
	}

	_, err := s.Plan(nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ContractViolation))
}

func TestBuilder_WithCtxDeepMergesConfig(t *testing.T) {
	s := subsystem.New("root", map[string]any{
		"config": map[string]any{"router": map[string]any{"debug": false}},
	})
	s.WithCtx(map[string]any{
		"config": map[string]any{"queue": map[string]any{"capacity": 10}},
	})

	plan, err := s.Plan(nil)
	require.NoError(t, err)

	cfg := plan.ResolvedCtx["config"].(map[string]any)
	assert.Equal(t, map[string]any{"debug": false}, cfg["router"])
	assert.Equal(t, map[string]any{"capacity": 10}, cfg["queue"])
}

func TestBuilder_InvalidateDropsCachedPlan(t *testing.T) {
	s := subsystem.New("root", nil)
	s.Hooks = []facet.Hook{simpleHook("router")}

	_, err := s.Plan(nil)
	require.NoError(t, err)
	require.NotNil(t, s.GetPlan())

	s.Invalidate()
	assert.Nil(t, s.GetPlan())
}

func TestBuilder_BuildRecursesIntoChildren(t *testing.T) {
	root := subsystem.New("root", map[string]any{})
	root.Hooks = []facet.Hook{simpleHook("router")}

	child := subsystem.NewChild(root, "child", map[string]any{})
	child.Hooks = []facet.Hook{simpleHook("queue")}

	cache := graph.NewCache(8)
	_, err := root.Build(cache)
	require.NoError(t, err)

	assert.True(t, child.IsBuilt())
	assert.True(t, child.Manager.Has("queue"))
	assert.Equal(t, root.GetPlan().ResolvedCtx, child.Ctx["parent"])
}

func TestBuilder_OverwriteReplacesEarlierFacet(t *testing.T) {
	s := subsystem.New("root", nil)
	s.Hooks = []facet.Hook{
		{Kind: "router", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
			return facet.New("router", facet.WithSource("first"))
		}},
		{Kind: "router", Overwrite: true, Fn: func(map[string]any, any, any) (*facet.Facet, error) {
			return facet.New("router", facet.WithSource("second"))
		}},
	}

	plan, err := s.Plan(nil)
	require.NoError(t, err)
	assert.Equal(t, "second", plan.FacetsByKind["router"].GetSource())
	assert.Equal(t, []string{"router"}, plan.OrderedKinds)
}
