//go:build !linux && !darwin

package hotkey

// New reports ErrUnsupported; callers keep running without a hotkey.
func New() (Manager, error) {
	return nil, ErrUnsupported
}
