package inject

// Translation from Windows virtual-key codes, as carried by canonical key
// transitions, to Linux input key codes.
// https://docs.microsoft.com/en-us/windows/win32/inputdev/virtual-key-codes

func virtualKeyToCode(vk uint32) (uint16, bool) {
	code, ok := vkToKey[vk]
	return code, ok
}

var vkToKey = map[uint32]uint16{
	0x1B: 1, // VK_ESCAPE -> KEY_ESC

	// function keys
	0x70: 59, // F1
	0x71: 60,
	0x72: 61,
	0x73: 62,
	0x74: 63,
	0x75: 64,
	0x76: 65,
	0x77: 66,
	0x78: 67,
	0x79: 68,  // F10
	0x7A: 87,  // F11
	0x7B: 88,  // F12

	0x2C: 99,  // VK_SNAPSHOT -> KEY_SYSRQ
	0x91: 70,  // VK_SCROLL -> KEY_SCROLLLOCK
	0x13: 119, // VK_PAUSE -> KEY_PAUSE

	0xC0: 41, // VK_OEM_3 -> KEY_GRAVE

	// digit row
	0x31: 2,
	0x32: 3,
	0x33: 4,
	0x34: 5,
	0x35: 6,
	0x36: 7,
	0x37: 8,
	0x38: 9,
	0x39: 10,
	0x30: 11,

	0xBD: 12, // VK_OEM_MINUS
	0xBB: 13, // VK_OEM_PLUS -> KEY_EQUAL

	// letters
	0x41: 30, // A
	0x42: 48,
	0x43: 46,
	0x44: 32,
	0x45: 18,
	0x46: 33,
	0x47: 34,
	0x48: 35,
	0x49: 23,
	0x4A: 36,
	0x4B: 37,
	0x4C: 38,
	0x4D: 50,
	0x4E: 49,
	0x4F: 24,
	0x50: 25,
	0x51: 16,
	0x52: 19,
	0x53: 31,
	0x54: 20,
	0x55: 22,
	0x56: 47,
	0x57: 17,
	0x58: 45,
	0x59: 21,
	0x5A: 44, // Z

	0xDB: 26, // VK_OEM_4 -> KEY_LEFTBRACE
	0xDD: 27, // VK_OEM_6 -> KEY_RIGHTBRACE

	0xBA: 39, // VK_OEM_1 -> KEY_SEMICOLON
	0xDE: 40, // VK_OEM_7 -> KEY_APOSTROPHE

	0xBC: 51, // VK_OEM_COMMA
	0xBE: 52, // VK_OEM_PERIOD
	0xBF: 53, // VK_OEM_2 -> KEY_SLASH

	0x08: 14, // VK_BACK -> KEY_BACKSPACE
	0xDC: 43, // VK_OEM_5 -> KEY_BACKSLASH
	0x0D: 28, // VK_RETURN -> KEY_ENTER

	0x20: 57, // VK_SPACE

	0x09: 15, // VK_TAB
	0x14: 58, // VK_CAPITAL -> KEY_CAPSLOCK

	0x10: 42, // VK_SHIFT (unsided)
	0xA0: 42, // VK_LSHIFT
	0xA1: 54, // VK_RSHIFT

	0x11: 29, // VK_CONTROL (unsided)
	0xA2: 29, // VK_LCONTROL
	0xA3: 97, // VK_RCONTROL

	0x12: 56,  // VK_MENU (unsided)
	0xA4: 56,  // VK_LMENU -> KEY_LEFTALT
	0xA5: 100, // VK_RMENU -> KEY_RIGHTALT

	0x5B: 125, // VK_LWIN -> KEY_LEFTMETA
	0x5C: 126, // VK_RWIN -> KEY_RIGHTMETA

	0x2D: 110, // VK_INSERT
	0x2E: 111, // VK_DELETE

	0x24: 102, // VK_HOME
	0x23: 107, // VK_END

	0x21: 104, // VK_PRIOR -> KEY_PAGEUP
	0x22: 109, // VK_NEXT -> KEY_PAGEDOWN

	0x26: 103, // VK_UP
	0x25: 105, // VK_LEFT
	0x28: 108, // VK_DOWN
	0x27: 106, // VK_RIGHT
}
