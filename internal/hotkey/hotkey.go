package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned where no global hotkey backend exists.
var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Accel is a parsed key combination. Key is lower case: a single letter or
// digit, or a name such as "space", "return" or "f5".
type Accel struct {
	Mods Modifier
	Key  string
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
}

var keyAliases = map[string]string{
	"enter": "return",
	"esc":   "escape",
}

// Parse reads combinations such as "Ctrl+Alt+M" or "Alt+Space". Exactly one
// non-modifier key is required.
func Parse(accel string) (Accel, error) {
	var a Accel
	if strings.TrimSpace(accel) == "" {
		return a, fmt.Errorf("empty hotkey")
	}
	for _, part := range strings.Split(accel, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Accel{}, fmt.Errorf("hotkey %q: empty key", accel)
		}
		if mod, ok := modifierNames[name]; ok {
			a.Mods |= mod
			continue
		}
		if a.Key != "" {
			return Accel{}, fmt.Errorf("hotkey %q: more than one key", accel)
		}
		if alias, ok := keyAliases[name]; ok {
			name = alias
		}
		a.Key = name
	}
	if a.Key == "" {
		return Accel{}, fmt.Errorf("hotkey %q: no key besides modifiers", accel)
	}
	return a, nil
}

// OnPress adapts fn to a Register callback that fires on key down only.
func OnPress(fn func()) func(pressed bool) {
	return func(pressed bool) {
		if pressed {
			fn()
		}
	}
}
