package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spyglass.dev/cli/internal/core/event"
)

// ID is a value object representing a unique session identifier
type ID struct {
	value string
}

// NewID creates an ID with validation
func NewID(value string) (ID, error) {
	if value == "" {
		return ID{}, fmt.Errorf("session ID cannot be empty")
	}
	return ID{value: value}, nil
}

// GenerateID creates a new unique session ID
func GenerateID() ID {
	return ID{value: uuid.NewString()}
}

// Value returns the string value of the ID
func (i ID) Value() string {
	return i.value
}

// String implements the Stringer interface
func (i ID) String() string {
	return i.value
}

// Kind discriminates how a session reaches its debug target
type Kind string

const (
	// KindLocal - a debuggee process launched by this front-end
	KindLocal Kind = "local"
	// KindRemote - a connection to a debug target on another machine
	KindRemote Kind = "remote"
)

// State represents the lifecycle state of a session
type State string

const (
	// StateUninitialized - the slot exists but holds no live handle
	StateUninitialized State = "uninitialized"
	// StateConnecting - an attach or launch request is in flight
	StateConnecting State = "connecting"
	// StateActive - the session has a live handle and may be polled
	StateActive State = "active"
	// StateDetached - the handle was released by an explicit detach
	StateDetached State = "detached"
	// StateTerminated - the target ended on its own
	StateTerminated State = "terminated"
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// closed returns true for states that reject further poll/attach operations
func (s State) closed() bool {
	return s == StateDetached || s == StateTerminated
}

// Target is the capability handle owning the actual connection or process
// behind a session. Implementations pump blocking I/O in the background and
// deliver results on the events channel, which is closed when the target
// ends. Close releases the underlying handle and must be idempotent.
type Target interface {
	Events() <-chan *event.Event
	Close() error
}

// DialFunc produces a live target for a session. It may block until the
// connection is established or the context expires.
type DialFunc func(ctx context.Context) (Target, error)

// Session represents one attachable debug target, local or remote. All
// state transitions are guarded; operations on a detached or terminated
// session fail with ErrSessionClosed rather than touching stale handles.
type Session struct {
	mu          sync.RWMutex
	id          ID
	kind        Kind
	addr        string
	state       State
	target      Target
	startTime   time.Time
	endTime     *time.Time
	totalEvents int
}

// New creates a session slot for the given target kind. The session starts
// Uninitialized; Connect brings it to Active.
func New(kind Kind, addr string) *Session {
	return &Session{
		id:    GenerateID(),
		kind:  kind,
		addr:  addr,
		state: StateUninitialized,
	}
}

// ID returns the session identifier
func (s *Session) ID() ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Kind returns the session's target kind
func (s *Session) Kind() Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind
}

// Addr returns the address or command line the session was created for
func (s *Session) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsActive returns true if the session may be polled
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateActive
}

// StartTime returns when the session became active (zero until then)
func (s *Session) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime
}

// Duration returns how long the session has been (or was) active
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.startTime.IsZero() {
		return 0
	}
	if s.endTime != nil {
		return s.endTime.Sub(s.startTime)
	}
	return time.Since(s.startTime)
}

// TotalEvents returns the number of events drained so far
func (s *Session) TotalEvents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalEvents
}

// Connect transitions Uninitialized/Terminated -> Connecting -> Active.
// On failure the session falls back to Uninitialized and the error is a
// *ConnectError. Connecting an already active session is rejected, and a
// detached session is permanently closed: it signals ErrSessionClosed.
func (s *Session) Connect(ctx context.Context, dial DialFunc) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting:
		s.mu.Unlock()
		return fmt.Errorf("session %s: attach already in flight", s.id)
	case StateActive:
		s.mu.Unlock()
		return fmt.Errorf("session %s: already active", s.id)
	case StateDetached:
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = StateConnecting
	addr := s.addr
	s.mu.Unlock()

	target, err := dial(ctx)

	s.mu.Lock()

	// A detach issued while the dial was in flight wins: the slot is
	// closed and must not resurrect. The late-arriving handle is released.
	if s.state != StateConnecting {
		s.mu.Unlock()
		if err == nil && target != nil {
			_ = target.Close()
		}
		return ErrSessionClosed
	}
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateUninitialized
		return &ConnectError{Addr: addr, Err: err}
	}

	s.target = target
	s.state = StateActive
	s.startTime = time.Now()
	s.endTime = nil
	return nil
}

// Poll drains any pending events from the target without blocking. Polling
// a session that is not Active returns ErrSessionClosed; this includes a
// poll racing a detach from a prior tick, which is defined to signal closed
// rather than touch a released handle. A closed events channel means the
// target ended and moves the session to Terminated.
func (s *Session) Poll() ([]*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, ErrSessionClosed
	}

	var events []*event.Event
	for {
		select {
		case evt, ok := <-s.target.Events():
			if !ok {
				s.terminateLocked(StateTerminated)
				return events, nil
			}
			events = append(events, evt)
			s.totalEvents++
		default:
			return events, nil
		}
	}
}

// Detach releases the target handle and moves the session to Detached.
// Detaching an already closed session is a no-op.
func (s *Session) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.closed() {
		return nil
	}
	if s.state != StateActive {
		// Nothing was ever attached; just close the slot.
		s.terminateLocked(StateDetached)
		return nil
	}

	err := s.target.Close()
	s.terminateLocked(StateDetached)
	if err != nil {
		return fmt.Errorf("session %s: release target: %w", s.id, err)
	}
	return nil
}

// terminateLocked finalizes the session into the given closed state.
// Callers must hold the write lock.
func (s *Session) terminateLocked(final State) {
	s.target = nil
	s.state = final
	if !s.startTime.IsZero() && s.endTime == nil {
		now := time.Now()
		s.endTime = &now
	}
}

// String returns a string representation of the session
func (s *Session) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fmt.Sprintf("Session{ID: %s, Kind: %s, State: %s, Addr: %s, TotalEvents: %d}",
		s.id.Value(), s.kind, s.state, s.addr, s.totalEvents)
}
