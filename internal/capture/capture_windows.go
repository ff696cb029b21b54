//go:build windows

package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"kvmlink/internal/event"
	"kvmlink/internal/relay"
)

// Windows implementation: WH_MOUSE_LL / WH_KEYBOARD_LL hooks serviced by a
// GetMessage loop on the locked OS thread that installed them.

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105

	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	xbutton1 = 0x0001
	xbutton2 = 0x0002

	wheelDelta = 120

	// Thread message asking the servicing loop to drain control commands.
	msgControl = 0x8000 + 1 // WM_APP + 1
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type msllHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// currentSession anchors the hook procedures, which receive no context
// pointer from the OS. At most one session runs per process.
var currentSession atomic.Pointer[Session]

// Hook procedure trampolines are never freed, so they are created once for
// the process rather than per session.
var (
	mouseHookCallback = sync.OnceValue(func() uintptr {
		return syscall.NewCallback(mouseHookProc)
	})
	keyboardHookCallback = sync.OnceValue(func() uintptr {
		return syscall.NewCallback(keyboardHookProc)
	})
)

type windowsBackend struct {
	threadID     atomic.Uint32
	mouseHook    uintptr
	keyboardHook uintptr
}

func newBackend() backend {
	return &windowsBackend{}
}

func (b *windowsBackend) run(s *Session, ready chan<- error) error {
	if !currentSession.CompareAndSwap(nil, s) {
		err := errors.New("a hook session is already running in this process")
		ready <- err
		return err
	}
	defer currentSession.Store(nil)

	b.threadID.Store(windows.GetCurrentThreadId())

	if err := b.syncHooks(s.capturedCategories()); err != nil {
		b.unhookAll()
		ready <- err
		return err
	}
	defer b.unhookAll()

	s.state.Store(int32(StateInstalled))
	ready <- nil
	s.state.Store(int32(StateServicing))

	// This loop must never block on anything but GetMessage. A stalled loop
	// makes the user's input choppy system-wide.
	var oldWorst [3]time.Duration
	var m msg
	for count := uint(1); ; count++ {
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), ^uintptr(0), 0, 0)
		if int32(ret) < 0 {
			return lastErr
		}
		if int32(ret) == 0 {
			return nil
		}

		if m.Message == msgControl {
			if !b.drainControls(s) {
				return nil
			}
		}

		// Sample every hundred or so messages; logging belongs here, not in
		// the hook procedures.
		if count%128 == 0 {
			sampleLatency(s, &oldWorst)
		}
	}
}

func (b *windowsBackend) wake() {
	tid := b.threadID.Load()
	if tid == 0 {
		return
	}
	procPostThreadMessageW.Call(uintptr(tid), msgControl, 0, 0)
}

// drainControls applies queued control commands. It returns false on Stop.
func (b *windowsBackend) drainControls(s *Session) bool {
	for {
		select {
		case cmd := <-s.relay.Controls():
			if !s.applyControl(cmd) {
				return false
			}
			if _, ok := cmd.(relay.SetCapturedCategories); ok {
				if err := b.syncHooks(s.capturedCategories()); err != nil {
					slog.Warn("failed to adjust hook registration", "error", err)
				}
			}
		default:
			return true
		}
	}
}

// syncHooks registers or removes the OS hooks to match the category set.
func (b *windowsBackend) syncHooks(cats event.CategorySet) error {
	if cats.Has(event.CategoryMouse) && b.mouseHook == 0 {
		h, _, lastErr := procSetWindowsHookExW.Call(whMouseLL, mouseHookCallback(), 0, 0)
		if h == 0 {
			return &HookInstallError{Category: event.CategoryMouse, Err: lastErr}
		}
		b.mouseHook = h
	}
	if !cats.Has(event.CategoryMouse) && b.mouseHook != 0 {
		procUnhookWindowsHookEx.Call(b.mouseHook)
		b.mouseHook = 0
	}

	if cats.Has(event.CategoryKeyboard) && b.keyboardHook == 0 {
		h, _, lastErr := procSetWindowsHookExW.Call(whKeyboardLL, keyboardHookCallback(), 0, 0)
		if h == 0 {
			return &HookInstallError{Category: event.CategoryKeyboard, Err: lastErr}
		}
		b.keyboardHook = h
	}
	if !cats.Has(event.CategoryKeyboard) && b.keyboardHook != 0 {
		procUnhookWindowsHookEx.Call(b.keyboardHook)
		b.keyboardHook = 0
	}

	return nil
}

func (b *windowsBackend) unhookAll() {
	if b.mouseHook != 0 {
		procUnhookWindowsHookEx.Call(b.mouseHook)
		b.mouseHook = 0
	}
	if b.keyboardHook != 0 {
		procUnhookWindowsHookEx.Call(b.keyboardHook)
		b.keyboardHook = 0
	}
}

func sampleLatency(s *Session, old *[3]time.Duration) {
	for _, cat := range []event.Category{event.CategoryMouse, event.CategoryKeyboard} {
		w := s.WorstCallbackLatency(cat)
		if w > 50*time.Millisecond && w > old[cat] {
			slog.Warn("hook callback worst latency increased",
				"category", cat.String(), "latency", w)
			old[cat] = w
		}
	}
}

func mouseHookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if s := currentSession.Load(); s != nil {
			details := (*msllHookStruct)(unsafe.Pointer(lParam))
			if ev, ok := decodeMouse(uint32(wParam), details); ok {
				if s.dispatch(ev) {
					return 1
				}
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func keyboardHookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if s := currentSession.Load(); s != nil {
			details := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if ev, ok := decodeKeyboard(uint32(wParam), details); ok {
				if s.dispatch(ev) {
					return 1
				}
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func decodeMouse(code uint32, details *msllHookStruct) (event.Event, bool) {
	switch code {
	case wmMouseMove:
		return event.MouseMove{X: details.Pt.X, Y: details.Pt.Y}, true
	case wmLButtonDown:
		return event.MouseButton{Button: event.ButtonLeft, Pressed: true}, true
	case wmLButtonUp:
		return event.MouseButton{Button: event.ButtonLeft, Pressed: false}, true
	case wmRButtonDown:
		return event.MouseButton{Button: event.ButtonRight, Pressed: true}, true
	case wmRButtonUp:
		return event.MouseButton{Button: event.ButtonRight, Pressed: false}, true
	case wmMButtonDown:
		return event.MouseButton{Button: event.ButtonMiddle, Pressed: true}, true
	case wmMButtonUp:
		return event.MouseButton{Button: event.ButtonMiddle, Pressed: false}, true
	case wmXButtonDown, wmXButtonUp:
		button := xbuttonToButton(uint16(details.MouseData >> 16))
		if button == 0 {
			return nil, false
		}
		return event.MouseButton{Button: button, Pressed: code == wmXButtonDown}, true
	case wmMouseWheel:
		distance := int16(details.MouseData >> 16)
		if distance == 0 {
			return nil, false
		}
		return event.MouseWheel{Delta: distance / wheelDelta}, true
	}
	return nil, false
}

func decodeKeyboard(code uint32, details *kbdllHookStruct) (event.Event, bool) {
	switch code {
	case wmKeyDown, wmSysKeyDown:
		return event.KeyTransition{VirtualKey: details.VkCode, Pressed: true}, true
	case wmKeyUp, wmSysKeyUp:
		return event.KeyTransition{VirtualKey: details.VkCode, Pressed: false}, true
	}
	return nil, false
}

func xbuttonToButton(xbutton uint16) uint16 {
	switch xbutton {
	case xbutton1:
		return event.ButtonMouse4
	case xbutton2:
		return event.ButtonMouse5
	}
	return 0
}
