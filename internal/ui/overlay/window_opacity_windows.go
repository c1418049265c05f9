//go:build windows

package overlay

import (
	"syscall"

	"fyne.io/fyne/v2/driver"
)

const (
	gwlExStyle  int32 = -20
	wsExLayered       = 0x00080000
	lwaAlpha          = 0x2
)

var (
	user32                         = syscall.NewLazyDLL("user32.dll")
	procGetWindowLongPtrW          = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW          = user32.NewProc("SetWindowLongPtrW")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

// applyNativeOpacity makes the whole prompt translucent, including the buttons.
func (prompt *Window) applyNativeOpacity(alpha uint8) {
	nativeWindow, ok := prompt.window.(driver.NativeWindow)
	if !ok {
		return
	}
	nativeWindow.RunNative(func(context any) {
		hwnd := windowHandle(context)
		if hwnd == 0 {
			return
		}
		index := styleIndex(gwlExStyle)
		style, _, _ := procGetWindowLongPtrW.Call(hwnd, index)
		if style&wsExLayered == 0 {
			procSetWindowLongPtrW.Call(hwnd, index, style|wsExLayered)
		}
		procSetLayeredWindowAttributes.Call(hwnd, 0, uintptr(alpha), lwaAlpha)
	})
}

func windowHandle(context any) uintptr {
	switch value := context.(type) {
	case driver.WindowsWindowContext:
		return value.HWND
	case *driver.WindowsWindowContext:
		return value.HWND
	default:
		return 0
	}
}

// styleIndex passes a negative window-long index as its 32-bit pattern.
func styleIndex(value int32) uintptr {
	return uintptr(uint32(value))
}
