package facet_test

import (
	"testing"

	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHooks_AddRejectsNonCallable(t *testing.T) {
	d := facet.NewDefaultHooks()
	err := d.Add(facet.Hook{Kind: "router"})
	require.Error(t, err)
}

func TestDefaultHooks_ForkIsIndependent(t *testing.T) {
	d := facet.NewDefaultHooks()
	require.NoError(t, d.Add(facet.Hook{Kind: "router", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
		return facet.New("router")
	}}))

	fork := d.Fork()
	require.NoError(t, fork.Add(facet.Hook{Kind: "queue", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
		return facet.New("queue")
	}}))

	assert.Len(t, d.List(), 1)
	assert.Len(t, fork.List(), 2)
}

func TestDefaultHooks_RemoveAndClear(t *testing.T) {
	d := facet.NewDefaultHooks(facet.Hook{Kind: "router", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
		return facet.New("router")
	}})
	assert.True(t, d.Remove("router"))
	assert.False(t, d.Remove("router"))
	assert.Empty(t, d.List())

	require.NoError(t, d.Add(facet.Hook{Kind: "queue", Fn: func(map[string]any, any, any) (*facet.Facet, error) {
		return facet.New("queue")
	}}))
	d.Clear()
	assert.Empty(t, d.List())
}
