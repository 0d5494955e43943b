package target

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"spyglass.dev/cli/internal/core/event"
	"spyglass.dev/cli/internal/core/session"
)

// RetryConfig bounds the dial retry loop for a single attach attempt.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig returns the default dial retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 200 * time.Millisecond,
		MaxElapsedTime:  3 * time.Second,
	}
}

// RemoteConnector attaches to remote debug targets over a websocket. The
// wire format is owned here, not by the session core.
type RemoteConnector struct {
	dialer *websocket.Dialer
	retry  RetryConfig
	logger zerolog.Logger
}

// NewRemoteConnector creates a connector with the given retry policy.
func NewRemoteConnector(retry RetryConfig, logger zerolog.Logger) *RemoteConnector {
	if retry.InitialInterval <= 0 {
		retry = DefaultRetryConfig()
	}
	return &RemoteConnector{
		dialer: websocket.DefaultDialer,
		retry:  retry,
		logger: logger.With().Str("component", "remote-connector").Logger(),
	}
}

// Connect dials the remote endpoint, retrying transient failures with
// exponential backoff until the retry budget or the context runs out.
func (c *RemoteConnector) Connect(ctx context.Context, addr string) (session.Target, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/debug"}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialInterval
	bo.MaxElapsedTime = c.retry.MaxElapsedTime

	var conn *websocket.Conn
	operation := func() error {
		var err error
		conn, _, err = c.dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Msg("dial attempt failed")
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	t := &remoteTarget{
		conn:   conn,
		events: make(chan *event.Event, eventBufferSize),
		logger: c.logger.With().Str("addr", addr).Logger(),
	}
	go t.readLoop()

	t.logger.Debug().Msg("remote target connected")
	return t, nil
}

// wireEvent is the message the remote backend sends for each debugger
// event.
type wireEvent struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// remoteTarget is a live remote debug connection exposed as a session
// target.
type remoteTarget struct {
	conn      *websocket.Conn
	events    chan *event.Event
	logger    zerolog.Logger
	closeOnce sync.Once
}

// Events returns the channel the read loop delivers on.
func (t *remoteTarget) Events() <-chan *event.Event {
	return t.events
}

// Close tears down the connection. Idempotent; the read loop then ends and
// closes the event channel.
func (t *remoteTarget) Close() error {
	var err error
	t.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = t.conn.Close()
	})
	return err
}

// readLoop pumps wire messages into the event channel until the connection
// ends, then closes the channel.
func (t *remoteTarget) readLoop() {
	defer close(t.events)

	for {
		var msg wireEvent
		if err := t.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Debug().Err(err).Msg("remote connection ended")
			}
			return
		}

		kind, err := event.NewKind(msg.Kind)
		if err != nil {
			t.logger.Warn().Str("kind", msg.Kind).Msg("remote sent unknown event kind, dropping")
			continue
		}

		t.deliver(event.New(kind, msg.Detail))
	}
}

// deliver performs a non-blocking send, dropping the oldest event on a full
// buffer.
func (t *remoteTarget) deliver(evt *event.Event) {
	for {
		select {
		case t.events <- evt:
			return
		default:
			select {
			case <-t.events:
			default:
			}
		}
	}
}
