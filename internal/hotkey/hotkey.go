// Package hotkey matches key chords against the captured key stream. The
// host uses it for the emergency escape chord that releases consumed input,
// so a misconfigured session can never lock the local machine out.
package hotkey

import (
	"sync"

	"kvmlink/internal/event"
)

// Common virtual key codes for chord definitions.
const (
	VKEscape  uint32 = 0x1B
	VKControl uint32 = 0x11
	VKMenu    uint32 = 0x12 // alt
	VKShift   uint32 = 0x10
)

type chord struct {
	keys     []uint32
	callback func()
}

// Watcher tracks which keys are currently down and fires a callback when all
// keys of a registered chord are held. It observes the event stream; it
// installs no hooks of its own.
type Watcher struct {
	mu     sync.Mutex
	down   map[uint32]bool
	chords []chord
}

// NewWatcher creates an empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{down: make(map[uint32]bool)}
}

// Register adds a chord of virtual key codes. The callback runs on its own
// goroutine when the last key of the chord goes down while the rest are held.
func (w *Watcher) Register(keys []uint32, callback func()) {
	if len(keys) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chords = append(w.chords, chord{keys: keys, callback: callback})
}

// Clear removes all registered chords.
func (w *Watcher) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chords = nil
}

// Observe feeds one key transition through the watcher. Chords are only
// checked on key-down, so holding a chord fires once per press of its final
// key.
func (w *Watcher) Observe(kt event.KeyTransition) {
	w.mu.Lock()
	defer w.mu.Unlock()

	vk := normalize(kt.VirtualKey)
	if kt.Pressed {
		w.down[vk] = true
	} else {
		delete(w.down, vk)
		return
	}

	for _, c := range w.chords {
		matched := true
		for _, k := range c.keys {
			if !w.down[k] {
				matched = false
				break
			}
		}
		if matched {
			go c.callback()
		}
	}
}

// normalize folds sided modifier codes into their generic variant. Low-level
// hooks report VK_LCONTROL and friends, while chords are written with the
// generic codes.
func normalize(vk uint32) uint32 {
	switch vk {
	case 0xA0, 0xA1: // VK_LSHIFT, VK_RSHIFT
		return VKShift
	case 0xA2, 0xA3: // VK_LCONTROL, VK_RCONTROL
		return VKControl
	case 0xA4, 0xA5: // VK_LMENU, VK_RMENU
		return VKMenu
	}
	return vk
}
