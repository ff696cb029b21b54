// Package capture installs OS-level input hooks on a dedicated thread and
// relays every observed input event to a single consumer.
package capture

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"kvmlink/internal/event"
	"kvmlink/internal/logging"
	"kvmlink/internal/relay"
)

var slog = logging.NewLogger("kvmlink/capture")

// Event channel depth between the hook thread and the consumer. The hook
// thread never waits on the consumer; overflow drops events instead.
const eventBuffer = 1024

// ErrUnsupported indicates input capture is not available on this platform.
var ErrUnsupported = errors.New("input capture is not supported on this platform")

// HookInstallError reports the OS refusing to register a hook. It is fatal to
// the Start attempt; callers must not retry.
type HookInstallError struct {
	Category event.Category
	Err      error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("failed to install %s hook: %v", e.Category, e.Err)
}

func (e *HookInstallError) Unwrap() error { return e.Err }

// State is the lifecycle phase of a hook session.
type State int32

const (
	StateUninstalled State = iota
	StateInstalled
	StateServicing
	StateStopping
)

// Policy is the runtime-mutable behavior of a session.
type Policy struct {
	// ShouldConsume swallows captured input from the local hook chain when
	// true; when false the original input passes through to the next hook.
	ShouldConsume bool

	// Categories selects which input categories are captured. Zero means all.
	Categories event.CategorySet
}

// backend owns the platform hook machinery. run executes on the dedicated
// servicing thread; wake unblocks its loop from any other thread so pending
// control commands get noticed.
type backend interface {
	run(s *Session, ready chan<- error) error
	wake()
}

// Session is one running capture: the installed hooks, the thread servicing
// them, and the current policy. One session may run per process.
type Session struct {
	relay   *relay.Relay
	backend backend

	shouldConsume atomic.Bool
	categories    atomic.Uint32
	state         atomic.Int32

	// worst callback duration per category, in nanoseconds
	worst [3]atomic.Int64

	done chan struct{}

	mu  sync.Mutex
	err error
}

// Start installs hooks for the categories requested by policy, spawns the
// servicing thread, and returns a session handle. A HookInstallError means
// this capture attempt is dead; there is no automatic retry.
func Start(policy Policy) (*Session, error) {
	return startWith(policy, newBackend())
}

func startWith(policy Policy, b backend) (*Session, error) {
	if policy.Categories == 0 {
		policy.Categories = event.AllCategories
	}

	s := &Session{
		relay:   relay.New(eventBuffer),
		backend: b,
		done:    make(chan struct{}),
	}
	s.shouldConsume.Store(policy.ShouldConsume)
	s.categories.Store(uint32(policy.Categories))

	ready := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		err := b.run(s, ready)
		runtime.UnlockOSThread()

		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.state.Store(int32(StateUninstalled))
		s.relay.Close()
		close(s.done)
	}()

	if err := <-ready; err != nil {
		<-s.done
		return nil, err
	}
	return s, nil
}

// Relay returns the handoff channel carrying this session's events.
func (s *Session) Relay() *relay.Relay {
	return s.relay
}

// State reports the session's lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Err returns the error the servicing thread exited with, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetShouldConsume updates the consume flag. The write is a plain atomic
// store: it applies to the very next callback the hook thread services.
func (s *Session) SetShouldConsume(consume bool) {
	s.shouldConsume.Store(consume)
}

// SetCapturedCategories replaces the captured category set. The relay guard
// applies to the next callback; hook registration catches up on the servicing
// thread, so OS-level passthrough of a dropped category is eventually
// effective rather than immediate.
func (s *Session) SetCapturedCategories(cats event.CategorySet) {
	for !s.relay.PostControl(relay.SetCapturedCategories{Categories: cats}) {
		select {
		case <-s.done:
			return
		default:
			s.backend.wake()
			runtime.Gosched()
		}
	}
	s.backend.wake()
}

// Stop asks the servicing thread to uninstall its hooks and exit, then waits
// for it. A callback already in flight completes normally; after Stop returns
// the session produces no further events.
func (s *Session) Stop() {
	// A full control queue is transient while the servicing thread is alive;
	// keep nudging it until the command fits or the thread is already gone.
	for !s.relay.PostControl(relay.Stop{}) {
		select {
		case <-s.done:
			return
		default:
			s.backend.wake()
			runtime.Gosched()
		}
	}
	s.backend.wake()
	<-s.done
}

// WorstCallbackLatency reports the high-water mark of callback duration for
// one hook category. A slow callback stalls the global input pipeline, so
// this is watched continuously.
func (s *Session) WorstCallbackLatency(cat event.Category) time.Duration {
	if int(cat) >= len(s.worst) {
		return 0
	}
	return time.Duration(s.worst[cat].Load())
}

// dispatch is the callback path. It runs synchronously inside the OS hook
// chain call, on the servicing thread only, and must never block. The return
// value tells the hook whether to swallow the original input.
func (s *Session) dispatch(ev event.Event) bool {
	t0 := time.Now()

	cat := ev.Category()
	if !event.CategorySet(s.categories.Load()).Has(cat) {
		return false
	}

	re := s.relay.NewEvent(ev)
	if !s.relay.Send(re) {
		// Undelivered: ownership stayed with us, nobody else will free it.
		re.Release()
	}

	// Read at this exact callback, not cached from session start.
	consume := s.shouldConsume.Load()

	s.observeLatency(cat, time.Since(t0))
	return consume
}

// applyControl handles one control command on the servicing thread. It
// returns false when the session must stop.
func (s *Session) applyControl(cmd relay.ControlCommand) bool {
	switch c := cmd.(type) {
	case relay.Stop:
		s.state.Store(int32(StateStopping))
		return false
	case relay.SetShouldConsume:
		s.shouldConsume.Store(c.Consume)
	case relay.SetCapturedCategories:
		// Unlike Start, an empty set here is honored: it means capture
		// nothing until told otherwise.
		s.categories.Store(uint32(c.Categories))
	}
	return true
}

func (s *Session) capturedCategories() event.CategorySet {
	return event.CategorySet(s.categories.Load())
}

func (s *Session) observeLatency(cat event.Category, d time.Duration) {
	if int(cat) >= len(s.worst) {
		return
	}
	w := &s.worst[cat]
	for {
		cur := w.Load()
		if int64(d) <= cur {
			return
		}
		if w.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}
