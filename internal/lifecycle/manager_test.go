package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingComponent struct {
	name     string
	startErr error
	stopErr  error
	events   *[]string
}

func (c *recordingComponent) Start(context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	*c.events = append(*c.events, "start:"+c.name)
	return nil
}

func (c *recordingComponent) Stop(context.Context) error {
	*c.events = append(*c.events, "stop:"+c.name)
	return c.stopErr
}

func (c *recordingComponent) Name() string { return c.name }

func TestManagerStartsInOrderStopsInReverse(t *testing.T) {
	var events []string
	m := NewManager()
	require.NoError(t, m.Register(&recordingComponent{name: "tracing", events: &events}))
	require.NoError(t, m.Register(&recordingComponent{name: "api", events: &events}))
	require.NoError(t, m.Register(&recordingComponent{name: "watcher", events: &events}))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, []string{
		"start:tracing", "start:api", "start:watcher",
		"stop:watcher", "stop:api", "stop:tracing",
	}, events)
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var events []string
	m := NewManager()
	require.NoError(t, m.Register(&recordingComponent{name: "first", events: &events}))
	require.NoError(t, m.Register(&recordingComponent{name: "second", events: &events}))
	require.NoError(t, m.Register(&recordingComponent{name: "broken", startErr: errors.New("bind failed"), events: &events}))

	err := m.Start(context.Background())

	require.Error(t, err)
	assert.ErrorContains(t, err, "starting broken")
	assert.Equal(t, []string{
		"start:first", "start:second",
		"stop:second", "stop:first",
	}, events)
}

func TestManagerStopContinuesPastErrors(t *testing.T) {
	var events []string
	m := NewManager()
	require.NoError(t, m.Register(&recordingComponent{name: "first", events: &events}))
	require.NoError(t, m.Register(&recordingComponent{name: "flaky", stopErr: errors.New("close failed"), events: &events}))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	assert.Equal(t, []string{
		"start:first", "start:flaky",
		"stop:flaky", "stop:first",
	}, events)
}

func TestManagerRegistrationValidation(t *testing.T) {
	var events []string
	m := NewManager()

	assert.ErrorContains(t, m.Register(nil), "nil component")
	assert.ErrorContains(t, m.Register(&recordingComponent{events: &events}), "non-empty name")

	c := &recordingComponent{name: "api", events: &events}
	require.NoError(t, m.Register(c))
	assert.ErrorContains(t, m.Register(c), "already registered")
}
