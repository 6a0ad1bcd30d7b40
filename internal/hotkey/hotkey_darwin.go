//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

extern void goHotkeyCallback(UInt32 id, int pressed);

static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    EventHotKeyID hkID;
    GetEventParameter(theEvent, kEventParamDirectObject, typeEventHotKeyID, NULL, sizeof(hkID), NULL, &hkID);

    int pressed = (GetEventKind(theEvent) == kEventHotKeyPressed) ? 1 : 0;
    goHotkeyCallback(hkID.id, pressed);

    return noErr;
}

static int handlerInstalled = 0;

static void installHandler(void) {
    if (handlerInstalled) return;
    EventTypeSpec eventTypes[2];
    eventTypes[0].eventClass = kEventClassKeyboard;
    eventTypes[0].eventKind = kEventHotKeyPressed;
    eventTypes[1].eventClass = kEventClassKeyboard;
    eventTypes[1].eventKind = kEventHotKeyReleased;

    InstallApplicationEventHandler(NewEventHandlerUPP(hotkeyHandler), 2, eventTypes, NULL, NULL);
    handlerInstalled = 1;
}

static EventHotKeyRef registerHotkey(UInt32 keyCode, UInt32 modifiers, UInt32 id) {
    installHandler();

    EventHotKeyID hotKeyID;
    hotKeyID.signature = 'mlns';
    hotKeyID.id = id;

    EventHotKeyRef ref = NULL;
    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hotKeyID, GetApplicationEventTarget(), 0, &ref);
    if (status != noErr) return NULL;
    return ref;
}

static void unregisterHotkey(EventHotKeyRef ref) {
    UnregisterEventHotKey(ref);
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// Carbon modifier bits.
const (
	cmdKey     = 0x0100
	shiftKey   = 0x0200
	optionKey  = 0x0800
	controlKey = 0x1000
)

// Virtual key codes for an ANSI layout.
var keyCodes = map[string]uint32{
	"a": 0, "s": 1, "d": 2, "f": 3, "h": 4, "g": 5, "z": 6, "x": 7,
	"c": 8, "v": 9, "b": 11, "q": 12, "w": 13, "e": 14, "r": 15, "y": 16,
	"t": 17, "1": 18, "2": 19, "3": 20, "4": 21, "6": 22, "5": 23, "9": 25,
	"7": 26, "8": 28, "0": 29, "o": 31, "u": 32, "i": 34, "p": 35, "l": 37,
	"j": 38, "k": 40, "n": 45, "m": 46,
	"return": 36, "tab": 48, "space": 49, "backspace": 51, "escape": 53,
	"delete": 117, "home": 115, "end": 119,
	"f1": 122, "f2": 120, "f3": 99, "f4": 118, "f5": 96, "f6": 97,
	"f7": 98, "f8": 100, "f9": 101, "f10": 109, "f11": 103, "f12": 111,
}

type registration struct {
	id  uint32
	ref C.EventHotKeyRef
}

type darwinManager struct {
	mu     sync.Mutex
	nextID uint32
	regs   map[string]registration
}

var (
	callbacksMu sync.Mutex
	callbacks   = make(map[uint32]func(bool))
)

// New creates a new macOS hotkey manager using Carbon. Events are delivered
// by the application event loop that the tray runs.
func New() (Manager, error) {
	return &darwinManager{regs: make(map[string]registration)}, nil
}

//export goHotkeyCallback
func goHotkeyCallback(id C.UInt32, pressed C.int) {
	callbacksMu.Lock()
	cb := callbacks[uint32(id)]
	callbacksMu.Unlock()
	if cb != nil {
		cb(pressed == 1)
	}
}

func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}
	code, ok := keyCodes[a.Key]
	if !ok {
		return fmt.Errorf("hotkey %s: unknown key %q", accel, a.Key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.regs[accel]; ok {
		return fmt.Errorf("hotkey %s already registered", accel)
	}
	m.nextID++
	id := m.nextID

	callbacksMu.Lock()
	callbacks[id] = callback
	callbacksMu.Unlock()

	ref := C.registerHotkey(C.UInt32(code), C.UInt32(carbonModifiers(a.Mods)), C.UInt32(id))
	if ref == nil {
		callbacksMu.Lock()
		delete(callbacks, id)
		callbacksMu.Unlock()
		return fmt.Errorf("failed to register hotkey %s", accel)
	}
	m.regs[accel] = registration{id: id, ref: ref}
	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regs[accel]
	if !ok {
		return fmt.Errorf("hotkey %s not registered", accel)
	}
	m.release(accel, r)
	return nil
}

func (m *darwinManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for accel, r := range m.regs {
		m.release(accel, r)
	}
	return nil
}

func (m *darwinManager) release(accel string, r registration) {
	C.unregisterHotkey(r.ref)
	delete(m.regs, accel)
	callbacksMu.Lock()
	delete(callbacks, r.id)
	callbacksMu.Unlock()
}

func carbonModifiers(mods Modifier) uint32 {
	var out uint32
	if mods&ModCtrl != 0 {
		out |= controlKey
	}
	if mods&ModShift != 0 {
		out |= shiftKey
	}
	if mods&ModAlt != 0 {
		out |= optionKey
	}
	if mods&ModSuper != 0 {
		out |= cmdKey
	}
	return out
}
