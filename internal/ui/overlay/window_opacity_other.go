//go:build !windows

package overlay

// applyNativeOpacity is a no-op; the background rectangle alone carries the opacity.
func (prompt *Window) applyNativeOpacity(uint8) {}
