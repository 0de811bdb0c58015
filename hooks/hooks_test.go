package hooks_test

import (
	"testing"

	"github.com/mycelia-dev/subsystem-kernel/hooks"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/router"
	"github.com/mycelia-dev/subsystem-kernel/scheduler"
	"github.com/mycelia-dev/subsystem-kernel/subsystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCanonical(t *testing.T, cfg map[string]any) *subsystem.Subsystem {
	t.Helper()
	s := subsystem.New("root", map[string]any{"config": cfg})
	s.DefaultHooks = hooks.CanonicalDefaults()
	_, err := s.Build(nil)
	require.NoError(t, err)
	return s
}

func registerPing(t *testing.T, s *subsystem.Subsystem, pattern string, handler router.Handler) {
	t.Helper()
	routerFacet, ok := s.Property("router")
	require.True(t, ok)
	r, _ := routerFacet.Get("instance")
	require.NoError(t, r.(*router.Router).RegisterRoute(pattern, handler, router.Metadata{}))
}

func acceptMessage(t *testing.T, s *subsystem.Subsystem, msg message.Message) {
	t.Helper()
	processorFacet, ok := s.Property("processor")
	require.True(t, ok)
	accept, _ := processorFacet.Get("accept")
	require.NoError(t, accept.(func(message.Message) error)(msg))
}

func TestCanonicalDefaults_SchedulerDrainsTwoMessages(t *testing.T) {
	s := buildCanonical(t, nil)
	registerPing(t, s, "ping", func(msg message.Message, params map[string]string, meta router.Metadata) (any, error) {
		return "pong", nil
	})

	acceptMessage(t, s, &message.Base{ID: "1", Path: "ping"})
	acceptMessage(t, s, &message.Base{ID: "2", Path: "ping"})

	schedulerFacet, ok := s.Property("scheduler")
	require.True(t, ok)
	process, _ := schedulerFacet.Get("process")
	result := process.(func(int) scheduler.Result)(50)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Errors)

	statsFacet, ok := s.Property("statistics")
	require.True(t, ok)
	timeSlices, _ := statsFacet.Get("timeSlicesReceived")
	assert.EqualValues(t, 1, timeSlices)
	enqueued, _ := statsFacet.Get("enqueued")
	assert.EqualValues(t, 2, enqueued)
}

func TestCanonicalDefaults_PausedSchedulerReportsPaused(t *testing.T) {
	s := buildCanonical(t, nil)

	schedulerFacet, ok := s.Property("scheduler")
	require.True(t, ok)

	pause, _ := schedulerFacet.Get("pauseProcessing")
	pause.(func())()

	process, _ := schedulerFacet.Get("process")
	result := process.(func(int) scheduler.Result)(50)
	assert.Equal(t, "paused", result.Status)

	isPaused, _ := schedulerFacet.Get("isPaused")
	assert.True(t, isPaused.(bool))
}

func TestSynchronousDefaults_ProcessesInline(t *testing.T) {
	s := subsystem.New("root", map[string]any{})
	s.DefaultHooks = hooks.SynchronousDefaults()
	_, err := s.Build(nil)
	require.NoError(t, err)

	registerPing(t, s, "echo", func(msg message.Message, params map[string]string, meta router.Metadata) (any, error) {
		return msg.GetBody(), nil
	})

	syncFacet, ok := s.Property("synchronous")
	require.True(t, ok)
	process, _ := syncFacet.Get("process")
	out, err := process.(func(message.Message) (any, error))(&message.Base{ID: "1", Path: "echo", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, ok = s.Property("scheduler")
	assert.False(t, ok, "synchronous defaults must not install a scheduler facet")
}

func TestCanonicalDefaults_ContractEnforced(t *testing.T) {
	s := buildCanonical(t, nil)
	processorFacet, ok := s.Property("processor")
	require.True(t, ok)
	for _, name := range []string{"accept", "processMessage", "processTick", "processImmediately"} {
		_, ok := processorFacet.Get(name)
		assert.True(t, ok, "missing %q", name)
	}
}

func TestCanonicalDefaults_ConfigFlowsToQueueCapacity(t *testing.T) {
	s := buildCanonical(t, map[string]any{
		"queue": map[string]any{"capacity": 1, "policy": "drop"},
	})

	acceptMessage(t, s, &message.Base{ID: "1", Path: "x"})
	acceptMessage(t, s, &message.Base{ID: "2", Path: "x"})

	queueFacet, ok := s.Property("queue")
	require.True(t, ok)
	size, _ := queueFacet.Get("size")
	assert.Equal(t, 1, size.(func() int)())
}

func TestCanonicalDefaults_NoRouteSurfacesAsProcessingError(t *testing.T) {
	s := buildCanonical(t, nil)
	acceptMessage(t, s, &message.Base{ID: "1", Path: "missing"})

	schedulerFacet, ok := s.Property("scheduler")
	require.True(t, ok)
	process, _ := schedulerFacet.Get("process")
	result := process.(func(int) scheduler.Result)(50)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Errors)
}
