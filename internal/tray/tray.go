// Package tray provides the host's system tray menu using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// item is one pending menu entry; nil marks a separator.
type item struct {
	title    string
	checked  bool
	checkbox bool
	callback func(checked bool)
	menuItem *systray.MenuItem
}

// Tray manages the system tray icon and menu.
type Tray struct {
	title    string
	tooltip  string
	items    []*item
	quitCh   chan struct{}
	quitOnce sync.Once
}

// New creates a tray definition. Menu items must be added before Run.
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddItem adds a clickable menu item.
func (t *Tray) AddItem(title string, callback func()) {
	t.items = append(t.items, &item{
		title:    title,
		callback: func(bool) { callback() },
	})
}

// CheckItem is a handle to a checkable menu item.
type CheckItem struct {
	it *item
}

// SetChecked updates the item's checkmark without firing its callback.
func (ci *CheckItem) SetChecked(checked bool) {
	ci.it.checked = checked
	if mi := ci.it.menuItem; mi != nil {
		if checked {
			mi.Check()
		} else {
			mi.Uncheck()
		}
	}
}

// AddCheckItem adds a checkable menu item. The callback receives the new
// checked state.
func (t *Tray) AddCheckItem(title string, checked bool, callback func(checked bool)) *CheckItem {
	it := &item{
		title:    title,
		checked:  checked,
		checkbox: true,
		callback: callback,
	}
	t.items = append(t.items, it)
	return &CheckItem{it: it}
}

// AddSeparator adds a separator to the menu.
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil)
}

// Run starts the tray event loop and blocks until Stop.
func (t *Tray) Run() {
	systray.Run(t.setup, func() {})
}

// Stop exits the tray event loop. Safe to call more than once.
func (t *Tray) Stop() {
	t.quitOnce.Do(func() {
		close(t.quitCh)
		systray.Quit()
	})
}

func (t *Tray) setup() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(defaultIcon())

	for _, it := range t.items {
		if it == nil {
			systray.AddSeparator()
			continue
		}

		if it.checkbox {
			it.menuItem = systray.AddMenuItemCheckbox(it.title, "", it.checked)
		} else {
			it.menuItem = systray.AddMenuItem(it.title, "")
		}

		go t.watch(it)
	}
}

func (t *Tray) watch(it *item) {
	for {
		select {
		case <-it.menuItem.ClickedCh:
			if it.checkbox {
				if it.menuItem.Checked() {
					it.menuItem.Uncheck()
				} else {
					it.menuItem.Check()
				}
				it.callback(it.menuItem.Checked())
			} else {
				it.callback(false)
			}
		case <-t.quitCh:
			return
		}
	}
}

// defaultIcon returns a minimal valid 16x16 32-bit ICO.
func defaultIcon() []byte {
	icon := make([]byte, 1118)
	// ICO header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// icon directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00,
		0x16, 0x00, 0x00, 0x00,
	})
	// DIB header; pixels and mask stay zero for transparency
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x20, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x04, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
	return icon
}
