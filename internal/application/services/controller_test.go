package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyglass.dev/cli/internal/core/event"
	"spyglass.dev/cli/internal/core/menu"
	"spyglass.dev/cli/internal/core/plugin"
	"spyglass.dev/cli/internal/core/session"
)

// recordingPlugin records HandleCommand invocations
type recordingPlugin struct {
	name     string
	calls    int
	lastSess *session.Session
	err      error
}

func (p *recordingPlugin) Name() string    { return p.name }
func (p *recordingPlugin) Version() string { return "1.0.0" }
func (p *recordingPlugin) HandleCommand(ctx context.Context, sess *session.Session) error {
	p.calls++
	p.lastSess = sess
	return p.err
}

// stubTarget is an in-memory session target
type stubTarget struct {
	events chan *event.Event
}

func newStubTarget(buffered ...*event.Event) *stubTarget {
	ch := make(chan *event.Event, len(buffered)+16)
	for _, evt := range buffered {
		ch <- evt
	}
	return &stubTarget{events: ch}
}

func (s *stubTarget) Events() <-chan *event.Event { return s.events }
func (s *stubTarget) Close() error                { return nil }

// stubConnector dials stub targets, or fails when err is set
type stubConnector struct {
	target   session.Target
	err      error
	dials    int
	lastAddr string
}

func (c *stubConnector) Connect(ctx context.Context, addr string) (session.Target, error) {
	c.dials++
	c.lastAddr = addr
	if c.err != nil {
		return nil, c.err
	}
	return c.target, nil
}

// stubLauncher launches stub targets
type stubLauncher struct {
	target session.Target
	err    error
}

func (l *stubLauncher) Launch(ctx context.Context, command string, args []string) (session.Target, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.target, nil
}

func testController(t *testing.T, reg *plugin.Registry, connector *stubConnector, launcher *stubLauncher) *Controller {
	t.Helper()
	if reg == nil {
		reg = plugin.NewRegistry()
	}
	if connector == nil {
		connector = &stubConnector{target: newStubTarget()}
	}
	if launcher == nil {
		launcher = &stubLauncher{target: newStubTarget()}
	}
	return NewController(DefaultControllerConfig(), reg, connector, launcher, zerolog.Nop())
}

func defaultTree() *menu.Descriptor {
	return menu.Submenu("",
		menu.Submenu("File",
			menu.Item("Attach Remote", menu.CmdAttachRemote),
			menu.Item("Activate Remote", menu.CmdActivateRemote),
			menu.Item("Detach", menu.CmdDetachActive),
		),
	)
}

func TestController_BuildMenu_DuplicateIDAbortsStartup(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)
	tree := menu.Submenu("",
		menu.Submenu("File",
			menu.Item("One", 42),
			menu.Item("Two", 42),
		),
	)

	err := ctrl.BuildMenu(tree)

	var fatal *menu.FatalConfigError
	require.ErrorAs(t, err, &fatal)
	assert.Nil(t, ctrl.Menu(), "A failed build must not install a partial menu")
}

func TestController_OnMenuDispatch_RoutesToCorrectPlugin(t *testing.T) {
	reg := plugin.NewRegistry()
	p1 := &recordingPlugin{name: "registers"}
	p2 := &recordingPlugin{name: "disassembly"}
	info1, err := reg.Register(p1)
	require.NoError(t, err)
	info2, err := reg.Register(p2)
	require.NoError(t, err)

	ctrl := testController(t, reg, nil, nil)
	require.NoError(t, ctrl.BuildMenu(defaultTree()))

	active, err := ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	err = ctrl.OnMenuDispatch(context.Background(), info2.MenuItem)

	require.NoError(t, err)
	assert.Equal(t, 0, p1.calls, "Dispatching one plugin's id must not invoke another")
	assert.Equal(t, 1, p2.calls)
	assert.Same(t, active, p2.lastSess, "Plugin borrows the active session")

	err = ctrl.OnMenuDispatch(context.Background(), info1.MenuItem)
	require.NoError(t, err)
	assert.Equal(t, 1, p1.calls)
}

func TestController_OnMenuDispatch_UnknownIDLoggedAndIgnored(t *testing.T) {
	reg := plugin.NewRegistry()
	p1 := &recordingPlugin{name: "registers"}
	info, err := reg.Register(p1)
	require.NoError(t, err)

	ctrl := testController(t, reg, nil, nil)
	require.NoError(t, ctrl.BuildMenu(defaultTree()))
	_, err = ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	err = ctrl.OnMenuDispatch(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUnknownDispatch)

	// The stale id must not break subsequent dispatch.
	err = ctrl.OnMenuDispatch(context.Background(), info.MenuItem)
	require.NoError(t, err)
	assert.Equal(t, 1, p1.calls)
}

func TestController_OnMenuDispatch_PluginWithoutActiveSession(t *testing.T) {
	reg := plugin.NewRegistry()
	p := &recordingPlugin{name: "registers"}
	info, err := reg.Register(p)
	require.NoError(t, err)

	ctrl := testController(t, reg, nil, nil)
	require.NoError(t, ctrl.BuildMenu(defaultTree()))

	err = ctrl.OnMenuDispatch(context.Background(), info.MenuItem)

	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Equal(t, 0, p.calls, "Plugin must not run without a session to act on")
}

func TestController_OnMenuDispatch_PluginErrorWrapped(t *testing.T) {
	reg := plugin.NewRegistry()
	p := &recordingPlugin{name: "registers", err: errors.New("backend busy")}
	info, err := reg.Register(p)
	require.NoError(t, err)

	ctrl := testController(t, reg, nil, nil)
	require.NoError(t, ctrl.BuildMenu(defaultTree()))
	_, err = ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	err = ctrl.OnMenuDispatch(context.Background(), info.MenuItem)

	require.Error(t, err)
	assert.ErrorIs(t, err, p.err)
	assert.Contains(t, err.Error(), "registers")
}

func TestController_OnMenuDispatch_MenuNotBuilt(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)

	err := ctrl.OnMenuDispatch(context.Background(), menu.CmdQuit)

	assert.Error(t, err)
}

func TestController_AttachRemote_DoesNotActivate(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	ctrl := testController(t, nil, connector, nil)

	sess, err := ctrl.AttachRemote(context.Background(), "devbox:1340")

	require.NoError(t, err)
	assert.Equal(t, "devbox:1340", connector.lastAddr)
	assert.True(t, sess.IsActive())
	assert.Same(t, sess, ctrl.RemoteSession())
	assert.Nil(t, ctrl.ActiveSession(), "Attach prepares the remote slot only; activation is explicit")
}

func TestController_AttachRemote_DefaultsToConfiguredEndpoint(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	ctrl := testController(t, nil, connector, nil)

	_, err := ctrl.AttachRemote(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, DefaultControllerConfig().RemoteEndpoint, connector.lastAddr)
}

func TestController_AttachRemote_FailurePreservesPriorSlot(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	ctrl := testController(t, nil, connector, nil)

	first, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)

	connector.err = errors.New("connection refused")
	_, err = ctrl.AttachRemote(context.Background(), "otherbox:1340")

	require.Error(t, err)
	var connectErr *session.ConnectError
	assert.ErrorAs(t, err, &connectErr)
	assert.Same(t, first, ctrl.RemoteSession(), "Failed attach must not clobber the existing remote session")
	assert.True(t, first.IsActive())
}

func TestController_AttachRemote_ReplacementDetachesPrevious(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	ctrl := testController(t, nil, connector, nil)

	first, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)

	connector.target = newStubTarget()
	second, err := ctrl.AttachRemote(context.Background(), "devbox:1341")
	require.NoError(t, err)

	assert.Same(t, second, ctrl.RemoteSession())
	assert.Equal(t, session.StateDetached, first.State(), "Replaced remote session is released")
}

func TestController_AttachRemote_ReplacementSparesActiveSession(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	ctrl := testController(t, nil, connector, nil)

	first, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)
	require.NoError(t, ctrl.ActivateRemote())

	connector.target = newStubTarget()
	_, err = ctrl.AttachRemote(context.Background(), "devbox:1341")
	require.NoError(t, err)

	assert.True(t, first.IsActive(), "A remote session promoted to active survives slot replacement")
	assert.Same(t, first, ctrl.ActiveSession())
}

func TestController_LaunchLocal_ReplacementDetachesPrevious(t *testing.T) {
	launcher := &stubLauncher{target: newStubTarget()}
	ctrl := testController(t, nil, nil, launcher)

	first, err := ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	launcher.target = newStubTarget()
	second, err := ctrl.LaunchLocal(context.Background(), "./b.out", nil)
	require.NoError(t, err)

	assert.Same(t, second, ctrl.ActiveSession())
	assert.Equal(t, session.StateDetached, first.State(),
		"The replaced debuggee must not keep running unobserved")
}

func TestController_LaunchLocal_ReplacementSparesRemoteSlot(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	launcher := &stubLauncher{target: newStubTarget()}
	ctrl := testController(t, nil, connector, launcher)

	remote, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)
	require.NoError(t, ctrl.ActivateRemote())

	local, err := ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	assert.Same(t, local, ctrl.ActiveSession())
	assert.Same(t, remote, ctrl.RemoteSession())
	assert.True(t, remote.IsActive(), "The remote slot stays prepared for a later activation")
}

func TestController_ActivateRemote(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)

	err := ctrl.ActivateRemote()
	assert.ErrorIs(t, err, ErrNoRemoteSession)

	sess, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)

	require.NoError(t, ctrl.ActivateRemote())
	assert.Same(t, sess, ctrl.ActiveSession())
}

func TestController_ActivateRemote_ClosedSessionRejected(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)
	sess, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)
	require.NoError(t, sess.Detach())

	err = ctrl.ActivateRemote()

	assert.ErrorIs(t, err, session.ErrSessionClosed)
	assert.Nil(t, ctrl.ActiveSession())
}

func TestController_DetachActive(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)

	err := ctrl.DetachActive()
	assert.ErrorIs(t, err, ErrNoActiveSession)

	sess, err := ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	require.NoError(t, ctrl.DetachActive())
	assert.Equal(t, session.StateDetached, sess.State())
	assert.Nil(t, ctrl.ActiveSession(), "Detach clears the active slot")
}

func TestController_Tick_NoActiveSession_IsNoOp(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)

	events := ctrl.Tick()

	assert.Nil(t, events)
}

func TestController_Tick_DrainsActiveSessionOnly(t *testing.T) {
	launcher := &stubLauncher{target: newStubTarget(
		event.New(event.KindTargetStopped, "breakpoint at main"),
		event.New(event.KindOutput, "hello"),
	)}
	remoteTarget := newStubTarget(event.New(event.KindLog, "remote noise"))
	connector := &stubConnector{target: remoteTarget}
	ctrl := testController(t, nil, connector, launcher)

	remote, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)
	_, err = ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	events := ctrl.Tick()

	require.Len(t, events, 2)
	assert.Equal(t, event.KindTargetStopped, events[0].Kind())
	assert.Equal(t, 0, remote.TotalEvents(), "The prepared remote session is not polled until activated")
}

func TestController_Tick_ClosedSessionRecovered(t *testing.T) {
	ctrl := testController(t, nil, nil, nil)
	sess, err := ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)
	require.NoError(t, sess.Detach())

	events := ctrl.Tick()

	assert.Nil(t, events, "Tick on a closed session is silent")

	// And the controller keeps working afterwards.
	_, err = ctrl.LaunchLocal(context.Background(), "./b.out", nil)
	require.NoError(t, err)
	assert.NotNil(t, ctrl.ActiveSession())
}

func TestController_DispatchFixedCommands(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	ctrl := testController(t, nil, connector, nil)
	require.NoError(t, ctrl.BuildMenu(defaultTree()))

	require.NoError(t, ctrl.OnMenuDispatch(context.Background(), menu.CmdAttachRemote))
	assert.Equal(t, 1, connector.dials)
	assert.NotNil(t, ctrl.RemoteSession())
	assert.Nil(t, ctrl.ActiveSession())

	require.NoError(t, ctrl.OnMenuDispatch(context.Background(), menu.CmdActivateRemote))
	assert.Same(t, ctrl.RemoteSession(), ctrl.ActiveSession())

	require.NoError(t, ctrl.OnMenuDispatch(context.Background(), menu.CmdDetachActive))
	assert.Nil(t, ctrl.ActiveSession())
}

func TestController_Shutdown_DetachesBothSlots(t *testing.T) {
	connector := &stubConnector{target: newStubTarget()}
	launcher := &stubLauncher{target: newStubTarget()}
	ctrl := testController(t, nil, connector, launcher)

	remote, err := ctrl.AttachRemote(context.Background(), "devbox:1340")
	require.NoError(t, err)
	active, err := ctrl.LaunchLocal(context.Background(), "./a.out", nil)
	require.NoError(t, err)

	err = ctrl.Shutdown(context.Background())

	require.NoError(t, err)
	assert.Equal(t, session.StateDetached, remote.State())
	assert.Equal(t, session.StateDetached, active.State())
	assert.Nil(t, ctrl.ActiveSession())
	assert.Nil(t, ctrl.RemoteSession())
}

func TestNewController_DefaultsInvalidConfig(t *testing.T) {
	ctrl := NewController(ControllerConfig{TickInterval: -time.Second}, plugin.NewRegistry(), nil, nil, zerolog.Nop())

	cfg := ctrl.Config()
	assert.Equal(t, DefaultControllerConfig().TickInterval, cfg.TickInterval)
	assert.Equal(t, DefaultControllerConfig().ConnectTimeout, cfg.ConnectTimeout)
}
