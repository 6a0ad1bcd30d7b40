//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/XKBlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

static Display* displayPtr = NULL;
static int grabFailed = 0;

// Grab conflicts arrive as asynchronous BadAccess errors; the default
// handler would exit the process.
static int onXError(Display* d, XErrorEvent* e) {
    grabFailed = 1;
    return 0;
}

static int openDisplay(void) {
    if (displayPtr != NULL) return 1;
    XInitThreads();
    displayPtr = XOpenDisplay(NULL);
    if (displayPtr == NULL) return 0;
    XSetErrorHandler(onXError);
    XkbSetDetectableAutoRepeat(displayPtr, True, NULL);
    return 1;
}

static int keycodeFor(const char* name) {
    KeySym sym = XStringToKeysym(name);
    if (sym == NoSymbol) return 0;
    return XKeysymToKeycode(displayPtr, sym);
}

static unsigned int lockVariants[4] = {0, LockMask, Mod2Mask, LockMask | Mod2Mask};

static int grabKey(int keycode, unsigned int modifiers) {
    Window root = DefaultRootWindow(displayPtr);
    grabFailed = 0;
    for (int i = 0; i < 4; i++) {
        XGrabKey(displayPtr, keycode, modifiers | lockVariants[i], root, False, GrabModeAsync, GrabModeAsync);
    }
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);
    return !grabFailed;
}

static void ungrabKey(int keycode, unsigned int modifiers) {
    Window root = DefaultRootWindow(displayPtr);
    for (int i = 0; i < 4; i++) {
        XUngrabKey(displayPtr, keycode, modifiers | lockVariants[i], root);
    }
    XSync(displayPtr, False);
}

static int checkEvent(int* keycode, unsigned int* state, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    while (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *state = event.xkey.state;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}

static void closeDisplay(void) {
    if (displayPtr != NULL) {
        XCloseDisplay(displayPtr);
        displayPtr = NULL;
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

const modMask = C.ShiftMask | C.ControlMask | C.Mod1Mask | C.Mod4Mask

type grab struct {
	keycode  C.int
	mods     C.uint
	callback func(bool)
	down     bool
}

type linuxManager struct {
	mu     sync.Mutex
	opened bool
	grabs  map[string]*grab
	stop   chan struct{}
	done   chan struct{}
}

// New creates a new Linux hotkey manager using X11. The display is opened on
// the first Register, so a missing X server surfaces there.
func New() (Manager, error) {
	mgr := &linuxManager{
		grabs: make(map[string]*grab),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	a, err := Parse(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.grabs[accel]; ok {
		return fmt.Errorf("hotkey %s already registered", accel)
	}
	if !m.opened {
		if C.openDisplay() == 0 {
			return fmt.Errorf("cannot open X display")
		}
		m.opened = true
	}

	name := C.CString(keysymName(a.Key))
	defer C.free(unsafe.Pointer(name))
	keycode := C.keycodeFor(name)
	if keycode == 0 {
		return fmt.Errorf("hotkey %s: unknown key %q", accel, a.Key)
	}

	mods := x11Modifiers(a.Mods)
	if C.grabKey(keycode, mods) == 0 {
		C.ungrabKey(keycode, mods)
		return fmt.Errorf("hotkey %s is grabbed by another client", accel)
	}

	m.grabs[accel] = &grab{keycode: keycode, mods: mods, callback: callback}
	return nil
}

func (m *linuxManager) Unregister(accel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.grabs[accel]
	if !ok {
		return fmt.Errorf("hotkey %s not registered", accel)
	}
	C.ungrabKey(g.keycode, g.mods)
	delete(m.grabs, accel)
	return nil
}

func (m *linuxManager) eventLoop() {
	defer close(m.done)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			for {
				cb, pressed, ok := m.next()
				if !ok {
					break
				}
				if cb != nil {
					cb(pressed)
				}
			}
		}
	}
}

// next reads one key event and resolves its callback. Auto-repeat presses
// are dropped.
func (m *linuxManager) next() (func(bool), bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return nil, false, false
	}
	var keycode C.int
	var state C.uint
	var pressed C.int
	if C.checkEvent(&keycode, &state, &pressed) == 0 {
		return nil, false, false
	}
	down := pressed == 1
	for _, g := range m.grabs {
		if g.keycode != keycode {
			continue
		}
		if down && (g.down || state&modMask != g.mods) {
			continue
		}
		if !down && !g.down {
			continue
		}
		g.down = down
		return g.callback, down, true
	}
	return nil, false, true
}

func (m *linuxManager) Close() error {
	close(m.stop)
	<-m.done

	m.mu.Lock()
	defer m.mu.Unlock()
	for accel, g := range m.grabs {
		C.ungrabKey(g.keycode, g.mods)
		delete(m.grabs, accel)
	}
	if m.opened {
		C.closeDisplay()
		m.opened = false
	}
	return nil
}

func x11Modifiers(mods Modifier) C.uint {
	var out C.uint
	if mods&ModShift != 0 {
		out |= C.ShiftMask
	}
	if mods&ModCtrl != 0 {
		out |= C.ControlMask
	}
	if mods&ModAlt != 0 {
		out |= C.Mod1Mask
	}
	if mods&ModSuper != 0 {
		out |= C.Mod4Mask
	}
	return out
}

var keysymNames = map[string]string{
	"space":     "space",
	"return":    "Return",
	"escape":    "Escape",
	"tab":       "Tab",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"home":      "Home",
	"end":       "End",
}

// keysymName maps a parsed key to its X keysym name.
func keysymName(key string) string {
	if name, ok := keysymNames[key]; ok {
		return name
	}
	if len(key) > 1 && key[0] == 'f' {
		return "F" + key[1:]
	}
	return key
}
