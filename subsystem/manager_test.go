package subsystem_test

import (
	"testing"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/mycelia-dev/subsystem-kernel/subsystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFacet(t *testing.T, kind string, opts ...facet.Option) *facet.Facet {
	t.Helper()
	f, err := facet.New(kind, opts...)
	require.NoError(t, err)
	return f
}

func TestManager_AddRejectsDuplicateKind(t *testing.T) {
	m := subsystem.NewManager()
	require.NoError(t, m.Add("router", mustFacet(t, "router"), subsystem.AddOptions{}))

	err := m.Add("router", mustFacet(t, "router"), subsystem.AddOptions{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.DuplicateKind))
}

func TestManager_TransactionRollbackRemovesAdditions(t *testing.T) {
	m := subsystem.NewManager()
	require.NoError(t, m.BeginTransaction())

	disposed := 0
	f1 := mustFacet(t, "router")
	require.NoError(t, f1.OnDispose(func() { disposed++ }))
	require.NoError(t, m.Add("router", f1, subsystem.AddOptions{}))

	f2 := mustFacet(t, "queue")
	require.NoError(t, f2.OnDispose(func() { disposed++ }))
	require.NoError(t, m.Add("queue", f2, subsystem.AddOptions{}))

	sizeAtBegin := 0
	require.NoError(t, m.Rollback())

	assert.Equal(t, sizeAtBegin, m.Size())
	assert.False(t, m.Has("router"))
	assert.False(t, m.Has("queue"))
	assert.Equal(t, 2, disposed)
}

func TestManager_CommitIsNoopOnContents(t *testing.T) {
	m := subsystem.NewManager()
	require.NoError(t, m.Add("router", mustFacet(t, "router"), subsystem.AddOptions{}))
	require.NoError(t, m.BeginTransaction())
	require.NoError(t, m.Commit())
	assert.Equal(t, 1, m.Size())
	assert.True(t, m.Has("router"))
}

func TestManager_RollbackWithoutTransactionFails(t *testing.T) {
	m := subsystem.NewManager()
	err := m.Rollback()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NoTransaction))
}

func TestManager_AddManyRollsBackAllOnFailure(t *testing.T) {
	m := subsystem.NewManager()
	ok := mustFacet(t, "router")
	bad := mustFacet(t, "queue")
	require.NoError(t, bad.OnInit(func(facet.InitArgs) error { return errs.New(errs.InvalidArgument, "boom") }))

	err := m.AddMany(
		[]string{"router", "queue"},
		map[string]*facet.Facet{"router": ok, "queue": bad},
		subsystem.AddOptions{Init: true},
	)
	require.Error(t, err)
	assert.Equal(t, 0, m.Size())
}

func TestManager_AttachRejectsMissingFacetAndConflict(t *testing.T) {
	s := subsystem.New("root", nil)
	f := mustFacet(t, "router", facet.WithAttach())
	require.NoError(t, s.Manager.Add("router", f, subsystem.AddOptions{Attach: true, Subsystem: s}))

	_, ok := s.Property("router")
	assert.True(t, ok)

	err := s.Manager.Attach("missing", s)
	assert.True(t, errs.Is(err, errs.NotFound))

	f2 := mustFacet(t, "queue")
	require.NoError(t, s.Manager.Add("queue", f2, subsystem.AddOptions{}))
	err = s.AttachFacet("router", f2)
	assert.True(t, errs.Is(err, errs.PropertyConflict))
}

func TestManager_DisposeAllClearsAndKeepsGoing(t *testing.T) {
	m := subsystem.NewManager()
	f1 := mustFacet(t, "router")
	require.NoError(t, f1.OnDispose(func() { panic("boom") }))
	f2 := mustFacet(t, "queue")
	disposed := false
	require.NoError(t, f2.OnDispose(func() { disposed = true }))

	require.NoError(t, m.Add("router", f1, subsystem.AddOptions{}))
	require.NoError(t, m.Add("queue", f2, subsystem.AddOptions{}))

	var loggedKind string
	m.DisposeAll(func(kind string, _ any) { loggedKind = kind })

	assert.Equal(t, "router", loggedKind)
	assert.True(t, disposed)
	assert.Equal(t, 0, m.Size())
}
